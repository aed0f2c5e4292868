package models

import (
	"errors"
	"fmt"
	"time"

	goval "github.com/go-passwd/validator"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/leebenson/conform"
	"golang.org/x/crypto/bcrypt"
)

// User represents a staff member of the clinic. Presence fields (IsOnline,
// LastSeen) are owned by the presence service; nothing else writes them.
type User struct {
	Model
	Fullname       string     `json:"fullname" binding:"required,min=2"`
	Username       string     `json:"username" binding:"required,min=2"`
	Email          string     `json:"email" gorm:"unique;not null" binding:"required,email"`
	Password       string     `json:"password,omitempty" gorm:"-" validate:"omitempty,min=4"`
	HashedPassword string     `json:"-"`
	Active         bool       `json:"active" gorm:"default:true"`
	IsOnline       bool       `json:"is_online" gorm:"default:false"`
	LastSeen       *time.Time `json:"last_seen"`
	DeviceToken    string     `json:"-"`
	RoleID         uuid.UUID  `gorm:"type:uuid" json:"role_id"`
	Role           Role       `gorm:"foreignKey:RoleID" json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// DeviceToken, when present, registers the client for push delivery of
	// messages that arrive while it is offline.
	DeviceToken string `json:"device_token"`
}

type LoginResponse struct {
	UserResponse
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Fullname string `json:"fullname"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
}

// UserPresence is the row shape returned by the active-users listing.
type UserPresence struct {
	ID           uint       `json:"id"`
	Fullname     string     `json:"fullname"`
	RoleName     string     `json:"role_name"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen"`
	LastSeenText string     `json:"last_seen_text"`
}

// PresenceStatus is the single-user presence read, with the relative label.
type PresenceStatus struct {
	UserID       uint       `json:"user_id"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	LastSeenText string     `json:"last_seen_text"`
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(15, errors.New("password cant be more than 15 characters")))
	err := passwordValidator.Validate(password)
	return err
}

func validateWhiteSpaces(data interface{}) error {
	return conform.Strings(data)
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans) + "; ")
		errs = append(errs, translatedErr)
	}
	return errs
}

// VerifyPassword verifies the collected password with the user's hashed password
func (u *User) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
}
