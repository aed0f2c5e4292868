package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/medilinkng/clinichat/config"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
)

const MaxFileSize = 32 << 20 // matches the router's multipart memory cap

// allowedExtensions is the upload allow-list; anything else is rejected
// before any byte reaches storage.
var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".pdf": true, ".docx": true, ".txt": true,
	".xlsx": true, ".xls": true, ".zip": true, ".rar": true,
}

// MediaService is the blob-store boundary: it stores uploaded files and hands
// back the opaque reference the chat core attaches to messages. The core
// never touches raw bytes beyond this call.
type MediaService interface {
	StoreAttachment(fileHeader *multipart.FileHeader) (*models.AttachmentRef, error)
}

type mediaService struct {
	Config *config.Config
	now    func() time.Time
}

// NewMediaService instantiates a mediaService
func NewMediaService(conf *config.Config) MediaService {
	return &mediaService{Config: conf, now: time.Now}
}

// AllowedFile reports whether the filename's extension is accepted for upload.
func AllowedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// storedNameFor derives a collision-free stored name from the original,
// keeping the extension so downloads get a sensible type.
func (m *mediaService) storedNameFor(filename string) string {
	sanitized := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	ext := filepath.Ext(sanitized)
	base := strings.TrimSuffix(sanitized, ext)
	return fmt.Sprintf("%s_%s%s", base, m.now().Format("20060102_150405"), ext)
}

func (m *mediaService) StoreAttachment(fileHeader *multipart.FileHeader) (*models.AttachmentRef, error) {
	if fileHeader == nil || fileHeader.Filename == "" {
		return nil, apiError.ValidationError("no file selected")
	}
	if !AllowedFile(fileHeader.Filename) {
		return nil, apiError.ValidationError("file type not allowed")
	}
	if fileHeader.Size > MaxFileSize {
		return nil, apiError.ValidationError(fmt.Sprintf("file size exceeds limit of %d bytes", MaxFileSize))
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("StoreAttachment: opening upload: %v", err)
		return nil, apiError.ErrStorage
	}

	storedName := m.storedNameFor(fileHeader.Filename)
	if err := m.uploadToS3(file, "chat/"+storedName); err != nil {
		log.Printf("StoreAttachment: %v", err)
		return nil, apiError.ErrStorageUnavailable
	}

	return &models.AttachmentRef{
		OriginalFilename: filepath.Base(fileHeader.Filename),
		StoredFilename:   storedName,
		MimeType:         fileHeader.Header.Get("Content-Type"),
		Size:             fileHeader.Size,
	}, nil
}

func (m *mediaService) createS3Client() (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(m.Config.AwsRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			m.Config.AwsAccessKeyID,
			m.Config.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config, %v", err)
	}

	return s3.NewFromConfig(cfg), nil
}

func (m *mediaService) uploadToS3(file multipart.File, key string) error {
	defer file.Close()

	fileContent, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file content: %v", err)
	}

	client, err := m.createS3Client()
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %v", err)
	}

	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(m.Config.AwsBucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(fileContent),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to S3: %v", err)
	}

	return nil
}
