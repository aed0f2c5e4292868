package services

import (
	"log"
	"net/http"

	"github.com/medilinkng/clinichat/config"
	"github.com/medilinkng/clinichat/db"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/medilinkng/clinichat/services/jwt"
	"github.com/medilinkng/clinichat/services/utils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AuthService interface
type AuthService interface {
	LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	SignupUser(request *models.User) (*models.User, error)
}

// authService struct
type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

// NewAuthService instantiate an authService
func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

func (s *authService) SignupUser(user *models.User) (*models.User, error) {
	if user == nil {
		log.Println("SignupUser error: user is nil")
		return nil, errors.New("user is nil")
	}

	if user.Email == "" {
		log.Println("SignupUser error: email is empty")
		return nil, errors.New("email is empty")
	}

	if err := s.authRepo.IsEmailExist(user.Email); err != nil {
		log.Printf("SignupUser error: %v", err)
		return nil, apiError.GetUniqueContraintError(err)
	}

	if err := models.ValidatePassword(user.Password); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(user.Password)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, err
	}
	user.HashedPassword = hashed
	user.Password = ""

	created, err := s.authRepo.CreateUser(user)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *authService) LoginUser(loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	foundUser, err := s.authRepo.FindUserByEmail(loginRequest.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("invalid email or password", http.StatusUnauthorized)
		}
		log.Printf("LoginUser error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if !foundUser.Active {
		return nil, apiError.New("user inactive", http.StatusUnauthorized)
	}

	if err := foundUser.VerifyPassword(loginRequest.Password); err != nil {
		return nil, apiError.New("invalid email or password", http.StatusUnauthorized)
	}

	// Token registration is best-effort; a failed write must not block login.
	if loginRequest.DeviceToken != "" {
		if err := s.authRepo.UpdateDeviceToken(foundUser.ID, loginRequest.DeviceToken); err != nil {
			log.Printf("LoginUser error storing device token: %v", err)
		}
	}

	roleName := foundUser.Role.Name
	isAdmin := roleName == models.RoleAdmin
	accessToken, refreshToken, err := jwt.GenerateTokenPair(foundUser.Email, s.Config.JWTSecret, isAdmin, foundUser.ID, roleName)
	if err != nil {
		log.Printf("LoginUser error generating tokens: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		UserResponse: models.UserResponse{
			ID:       foundUser.ID,
			Fullname: foundUser.Fullname,
			Username: foundUser.Username,
			Email:    foundUser.Email,
			RoleName: roleName,
		},
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
