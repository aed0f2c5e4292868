package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/medilinkng/clinichat/server/response"
)

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid request body", http.StatusBadRequest))
			return
		}

		created, err := s.AuthService.SignupUser(&user)
		if err != nil {
			if apiErr, ok := err.(*apiError.Error); ok {
				response.JSON(c, "", apiErr.Status, nil, apiErr)
				return
			}
			response.JSON(c, "", http.StatusBadRequest, nil, err)
			return
		}

		response.JSON(c, "signup successful", http.StatusCreated, models.UserResponse{
			ID:       created.ID,
			Fullname: created.Fullname,
			Username: created.Username,
			Email:    created.Email,
			RoleName: created.Role.Name,
		}, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginRequest models.LoginRequest
		if err := c.ShouldBindJSON(&loginRequest); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid request body", http.StatusBadRequest))
			return
		}

		loginResponse, apiErr := s.AuthService.LoginUser(&loginRequest)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "login successful", http.StatusOK, loginResponse, nil)
	}
}
