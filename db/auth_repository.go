package db

import (
	"log"

	"github.com/google/uuid"
	"github.com/medilinkng/clinichat/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AuthRepository is the user directory: account lookup plus the active-user
// listing the chat sidebar reads.
type AuthRepository interface {
	CreateUser(user *models.User) (*models.User, error)
	IsEmailExist(email string) error
	FindUserByEmail(email string) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	FindRoleByName(name string) (*models.Role, error)
	GetUserRoleByUserID(userID uint) (*models.Role, error)
	GetActiveUsers(excludeID uint, excludeRole string) ([]models.UserPresence, error)
	UpdateDeviceToken(userID uint, token string) error
}

type authRepo struct {
	DB *gorm.DB
}

func NewAuthRepo(db *GormDB) AuthRepository {
	return &authRepo{db.DB}
}

func (a *authRepo) CreateUser(user *models.User) (*models.User, error) {
	if user == nil {
		log.Println("CreateUser error: user is nil")
		return nil, errors.New("user is nil")
	}

	if user.RoleID == uuid.Nil {
		var defaultRole models.Role
		if err := a.DB.Where("name = ?", models.RoleReception).First(&defaultRole).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				defaultRole = models.Role{ID: uuid.New(), Name: models.RoleReception}
				if err := a.DB.Create(&defaultRole).Error; err != nil {
					log.Printf("CreateUser error creating default role: %v", err)
					return nil, err
				}
			} else {
				log.Printf("CreateUser error fetching default role: %v", err)
				return nil, err
			}
		}
		user.RoleID = defaultRole.ID
	}

	result := a.DB.Create(user)
	if result.Error != nil {
		log.Printf("CreateUser error: %v", result.Error)
		return nil, result.Error
	}

	if user.Role.Name == "" {
		if err := a.DB.Where("id = ?", user.RoleID).First(&user.Role).Error; err != nil {
			log.Printf("CreateUser error loading role: %v", err)
		}
	}

	return user, nil
}

func (a *authRepo) IsEmailExist(email string) error {
	var count int64
	err := a.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "gorm count error")
	}
	if count > 0 {
		return errors.New("email already in use")
	}
	return nil
}

func (a *authRepo) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := a.DB.Preload("Role").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	err := a.DB.Preload("Role").Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *authRepo) FindRoleByName(name string) (*models.Role, error) {
	var role models.Role
	if err := a.DB.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (a *authRepo) GetUserRoleByUserID(userID uint) (*models.Role, error) {
	var user models.User
	if err := a.DB.Preload("Role").Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user.Role, nil
}

func (a *authRepo) UpdateDeviceToken(userID uint, token string) error {
	err := a.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("device_token", token).Error
	if err != nil {
		return errors.Wrap(err, "updating device token")
	}
	return nil
}

// GetActiveUsers lists active users excluding the requester, online first and
// then by name. excludeRole, when non-empty, filters out that role entirely
// (reception staff do not see other reception users).
func (a *authRepo) GetActiveUsers(excludeID uint, excludeRole string) ([]models.UserPresence, error) {
	var rows []models.UserPresence
	q := a.DB.Model(&models.User{}).
		Select("users.id, users.fullname, roles.name AS role_name, users.is_online, users.last_seen").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.active = ? AND users.id <> ?", true, excludeID)
	if excludeRole != "" {
		q = q.Where("roles.name <> ?", excludeRole)
	}
	err := q.Order("users.is_online DESC, users.fullname ASC").Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing active users")
	}
	return rows, nil
}
