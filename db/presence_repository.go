package db

import (
	"time"

	"github.com/medilinkng/clinichat/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PresenceRepository owns the is_online/last_seen columns. No other code
// path writes them.
type PresenceRepository interface {
	SetOnlineStatus(userID uint, online bool, lastSeen time.Time) error
	TouchLastSeen(userID uint, lastSeen time.Time) error
	MarkOffline(userID uint) error
	GetPresence(userID uint) (*models.User, error)
}

type presenceRepo struct {
	DB *gorm.DB
}

func NewPresenceRepo(db *GormDB) PresenceRepository {
	return &presenceRepo{db.DB}
}

func (p *presenceRepo) SetOnlineStatus(userID uint, online bool, lastSeen time.Time) error {
	err := p.DB.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{"is_online": online, "last_seen": lastSeen}).Error
	if err != nil {
		return errors.Wrap(err, "updating online status")
	}
	return nil
}

func (p *presenceRepo) TouchLastSeen(userID uint, lastSeen time.Time) error {
	err := p.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("last_seen", lastSeen).Error
	if err != nil {
		return errors.Wrap(err, "touching last_seen")
	}
	return nil
}

// MarkOffline flips only the flag; last_seen keeps its original value so the
// relative label still reflects real activity, not the correction time.
func (p *presenceRepo) MarkOffline(userID uint) error {
	err := p.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("is_online", false).Error
	if err != nil {
		return errors.Wrap(err, "marking user offline")
	}
	return nil
}

func (p *presenceRepo) GetPresence(userID uint) (*models.User, error) {
	var user models.User
	if err := p.DB.Select("id", "is_online", "last_seen").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
