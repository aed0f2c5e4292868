package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedFile(t *testing.T) {
	allowed := []string{"scan.pdf", "photo.PNG", "report.docx", "sheet.xlsx", "archive.zip", "x.jpeg"}
	for _, name := range allowed {
		assert.True(t, AllowedFile(name), name)
	}

	rejected := []string{"run.exe", "script.sh", "page.html", "noext", "evil.pdf.exe", ""}
	for _, name := range rejected {
		assert.False(t, AllowedFile(name), name)
	}
}

func TestStoredNameFor(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 5, 0, time.UTC)
	m := &mediaService{now: func() time.Time { return at }}

	assert.Equal(t, "scan_20250310_143005.pdf", m.storedNameFor("scan.pdf"))
	assert.Equal(t, "lab_result_20250310_143005.png", m.storedNameFor("lab result.png"))
	// Path components are stripped from the original name.
	assert.Equal(t, "report_20250310_143005.docx", m.storedNameFor("../uploads/report.docx"))
}
