package services

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/medilinkng/clinichat/config"
	"github.com/medilinkng/clinichat/db"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// StaleThreshold is how long a nominally-online user may go without activity
// before readers treat the flag as stale. The boundary is exclusive: a
// last_seen of exactly five minutes ago still counts as online.
const StaleThreshold = 5 * time.Minute

// PresenceService tracks per-user online state. Expiry is lazy: a stale
// online flag is corrected the next time any read path touches the user, so
// offline-transition latency is bounded by read activity, not wall clock. A
// user who is never queried again stays nominally online in storage; whether
// that needs a periodic sweep is a product question, deliberately not solved
// here.
//
// Connect/disconnect/heartbeat writes are best-effort: a failed presence
// update is logged and never aborts the action that triggered it.
type PresenceService interface {
	SetOnline(userID uint)
	SetOffline(userID uint)
	Heartbeat(userID uint)
	StatusOf(userID uint) (*models.PresenceStatus, error)
	ListActiveUsers(requesterID uint, requesterRole string) ([]models.UserPresence, error)
}

type presenceService struct {
	Config       *config.Config
	presenceRepo db.PresenceRepository
	authRepo     db.AuthRepository
	now          func() time.Time
}

// NewPresenceService instantiates a presenceService
func NewPresenceService(presenceRepo db.PresenceRepository, authRepo db.AuthRepository, conf *config.Config) PresenceService {
	return &presenceService{
		Config:       conf,
		presenceRepo: presenceRepo,
		authRepo:     authRepo,
		now:          time.Now,
	}
}

func (s *presenceService) SetOnline(userID uint) {
	if err := s.presenceRepo.SetOnlineStatus(userID, true, s.now()); err != nil {
		log.Printf("SetOnline: presence update failed for user %d: %v", userID, err)
	}
}

func (s *presenceService) SetOffline(userID uint) {
	if err := s.presenceRepo.SetOnlineStatus(userID, false, s.now()); err != nil {
		log.Printf("SetOffline: presence update failed for user %d: %v", userID, err)
	}
}

// Heartbeat refreshes last_seen only. It does not force the online flag; the
// connect path does that.
func (s *presenceService) Heartbeat(userID uint) {
	if err := s.presenceRepo.TouchLastSeen(userID, s.now()); err != nil {
		log.Printf("Heartbeat: presence update failed for user %d: %v", userID, err)
	}
}

// StatusOf applies the staleness check, lazily writing back the offline flag
// when the stored state has expired, and renders the relative label.
func (s *presenceService) StatusOf(userID uint) (*models.PresenceStatus, error) {
	user, err := s.presenceRepo.GetPresence(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFoundError("user not found")
		}
		return nil, apiError.New("unable to read presence", http.StatusInternalServerError)
	}

	online := user.IsOnline
	if online && s.isStale(user.LastSeen) {
		online = false
		if err := s.presenceRepo.MarkOffline(userID); err != nil {
			log.Printf("StatusOf: stale write-back failed for user %d: %v", userID, err)
		}
	}

	return &models.PresenceStatus{
		UserID:       userID,
		IsOnline:     online,
		LastSeen:     user.LastSeen,
		LastSeenText: s.relativeLabel(online, user.LastSeen),
	}, nil
}

// ListActiveUsers lists everyone else with presence, correcting stale flags
// per row as the original read path does. Reception users are hidden from
// reception requesters.
func (s *presenceService) ListActiveUsers(requesterID uint, requesterRole string) ([]models.UserPresence, error) {
	excludeRole := ""
	if requesterRole == models.RoleReception {
		excludeRole = models.RoleReception
	}

	users, err := s.authRepo.GetActiveUsers(requesterID, excludeRole)
	if err != nil {
		return nil, apiError.New("unable to list users", http.StatusInternalServerError)
	}

	for i := range users {
		if users[i].IsOnline && s.isStale(users[i].LastSeen) {
			users[i].IsOnline = false
			if err := s.presenceRepo.MarkOffline(users[i].ID); err != nil {
				log.Printf("ListActiveUsers: stale write-back failed for user %d: %v", users[i].ID, err)
			}
		}
		users[i].LastSeenText = s.relativeLabel(users[i].IsOnline, users[i].LastSeen)
	}

	return users, nil
}

func (s *presenceService) isStale(lastSeen *time.Time) bool {
	if lastSeen == nil {
		return false
	}
	return s.now().Sub(*lastSeen) > StaleThreshold
}

func (s *presenceService) relativeLabel(online bool, lastSeen *time.Time) string {
	if online {
		return "online"
	}
	if lastSeen == nil {
		return "never"
	}

	elapsed := s.now().Sub(*lastSeen)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dmin ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours())/24)
	}
}
