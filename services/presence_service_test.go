package services

import (
	"testing"
	"time"

	"github.com/medilinkng/clinichat/db"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePresenceRepo struct {
	user             *models.User
	getErr           error
	markedOffline    []uint
	onlineStatusSets int
	touches          int
}

func (f *fakePresenceRepo) SetOnlineStatus(userID uint, online bool, lastSeen time.Time) error {
	f.onlineStatusSets++
	return nil
}

func (f *fakePresenceRepo) TouchLastSeen(userID uint, lastSeen time.Time) error {
	f.touches++
	return nil
}

func (f *fakePresenceRepo) MarkOffline(userID uint) error {
	f.markedOffline = append(f.markedOffline, userID)
	return nil
}

func (f *fakePresenceRepo) GetPresence(userID uint) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user, nil
}

type fakeAuthRepo struct {
	db.AuthRepository
	users           []models.UserPresence
	lastExcludeID   uint
	lastExcludeRole string
}

func (f *fakeAuthRepo) GetActiveUsers(excludeID uint, excludeRole string) ([]models.UserPresence, error) {
	f.lastExcludeID = excludeID
	f.lastExcludeRole = excludeRole
	out := make([]models.UserPresence, len(f.users))
	copy(out, f.users)
	return out, nil
}

func newTestPresenceService(repo db.PresenceRepository, auth db.AuthRepository, now time.Time) *presenceService {
	return &presenceService{
		presenceRepo: repo,
		authRepo:     auth,
		now:          func() time.Time { return now },
	}
}

func TestStatusOf_FreshOnline(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seen := now.Add(-4 * time.Minute)
	repo := &fakePresenceRepo{user: &models.User{Model: models.Model{ID: 9}, IsOnline: true, LastSeen: &seen}}
	svc := newTestPresenceService(repo, nil, now)

	status, err := svc.StatusOf(9)
	require.NoError(t, err)
	assert.True(t, status.IsOnline)
	assert.Equal(t, "online", status.LastSeenText)
	assert.Empty(t, repo.markedOffline)
}

func TestStatusOf_ExactThresholdStillOnline(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seen := now.Add(-StaleThreshold)
	repo := &fakePresenceRepo{user: &models.User{Model: models.Model{ID: 9}, IsOnline: true, LastSeen: &seen}}
	svc := newTestPresenceService(repo, nil, now)

	status, err := svc.StatusOf(9)
	require.NoError(t, err)
	assert.True(t, status.IsOnline, "exactly at the threshold is not stale")
	assert.Empty(t, repo.markedOffline)
}

func TestStatusOf_StaleFlagCorrected(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seen := now.Add(-StaleThreshold - time.Second)
	repo := &fakePresenceRepo{user: &models.User{Model: models.Model{ID: 9}, IsOnline: true, LastSeen: &seen}}
	svc := newTestPresenceService(repo, nil, now)

	status, err := svc.StatusOf(9)
	require.NoError(t, err)
	assert.False(t, status.IsOnline)
	assert.Equal(t, []uint{9}, repo.markedOffline)
	// last_seen is preserved through the correction so the label reflects
	// real activity.
	require.NotNil(t, status.LastSeen)
	assert.Equal(t, seen, *status.LastSeen)
	assert.Equal(t, "5min ago", status.LastSeenText)
}

func TestStatusOf_UserNotFound(t *testing.T) {
	repo := &fakePresenceRepo{getErr: gorm.ErrRecordNotFound}
	svc := newTestPresenceService(repo, nil, time.Now())

	_, err := svc.StatusOf(404)
	require.Error(t, err)
	apiErr, ok := err.(*apiError.Error)
	require.True(t, ok)
	assert.Equal(t, 404, apiErr.Status)
}

func TestRelativeLabels(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestPresenceService(&fakePresenceRepo{}, nil, now)

	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	assert.Equal(t, "online", svc.relativeLabel(true, nil))
	assert.Equal(t, "never", svc.relativeLabel(false, nil))
	assert.Equal(t, "just now", svc.relativeLabel(false, at(30*time.Second)))
	assert.Equal(t, "12min ago", svc.relativeLabel(false, at(12*time.Minute)))
	assert.Equal(t, "1h ago", svc.relativeLabel(false, at(90*time.Minute)))
	assert.Equal(t, "3d ago", svc.relativeLabel(false, at(3*24*time.Hour+time.Hour)))
}

func TestListActiveUsers_ReceptionHiddenFromReception(t *testing.T) {
	now := time.Now()
	auth := &fakeAuthRepo{}
	svc := newTestPresenceService(&fakePresenceRepo{}, auth, now)

	_, err := svc.ListActiveUsers(3, models.RoleReception)
	require.NoError(t, err)
	assert.Equal(t, uint(3), auth.lastExcludeID)
	assert.Equal(t, models.RoleReception, auth.lastExcludeRole)

	_, err = svc.ListActiveUsers(3, models.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, "", auth.lastExcludeRole, "non-reception requesters see everyone")
}

func TestListActiveUsers_StaleRowsCorrected(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Minute)
	stale := now.Add(-20 * time.Minute)
	auth := &fakeAuthRepo{users: []models.UserPresence{
		{ID: 1, Fullname: "Ada", IsOnline: true, LastSeen: &fresh},
		{ID: 2, Fullname: "Bola", IsOnline: true, LastSeen: &stale},
	}}
	repo := &fakePresenceRepo{}
	svc := newTestPresenceService(repo, auth, now)

	users, err := svc.ListActiveUsers(7, models.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.True(t, users[0].IsOnline)
	assert.Equal(t, "online", users[0].LastSeenText)

	assert.False(t, users[1].IsOnline)
	assert.Equal(t, "20min ago", users[1].LastSeenText)
	assert.Equal(t, []uint{2}, repo.markedOffline)
}
