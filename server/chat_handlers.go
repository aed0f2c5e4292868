package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/server/response"
)

func currentUserID(c *gin.Context) (uint, bool) {
	userIDCtx, ok := c.Get("userID")
	if !ok {
		response.JSON(c, "", http.StatusInternalServerError, nil, apiError.New("userID not found in context", http.StatusInternalServerError))
		return 0, false
	}
	userID, ok := userIDCtx.(uint)
	if !ok {
		response.JSON(c, "", http.StatusInternalServerError, nil, apiError.New("userID is not of type uint", http.StatusInternalServerError))
		return 0, false
	}
	return userID, true
}

func respondServiceError(c *gin.Context, err error) {
	if apiErr, ok := err.(*apiError.Error); ok {
		response.JSON(c, "", apiErr.Status, nil, apiErr)
		return
	}
	response.JSON(c, "", http.StatusInternalServerError, nil, err)
}

// handleOpenConversation resolves or creates the 1:1 conversation between the
// requester and the target user.
func (s *Server) handleOpenConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		targetID, err := strconv.ParseUint(c.Param("targetID"), 10, 64)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid target user id", http.StatusBadRequest))
			return
		}

		conv, svcErr := s.ChatService.OpenConversation(userID, uint(targetID))
		if svcErr != nil {
			respondServiceError(c, svcErr)
			return
		}

		response.JSON(c, "", http.StatusOK, gin.H{
			"conversation_id": conv.ID,
			"room":            conv.Room,
		}, nil)
	}
}

func (s *Server) handleListConversations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		summaries, err := s.ChatService.ListConversations(userID)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		response.JSON(c, "", http.StatusOK, summaries, nil)
	}
}

func (s *Server) handleListMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			return
		}

		conversationID, err := strconv.ParseUint(c.Param("conversationID"), 10, 64)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid conversation id", http.StatusBadRequest))
			return
		}

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		msgs, svcErr := s.ChatService.ListMessages(uint(conversationID), limit)
		if svcErr != nil {
			respondServiceError(c, svcErr)
			return
		}

		response.JSON(c, "", http.StatusOK, msgs, nil)
	}
}

func (s *Server) handleOtherParticipant() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		conversationID, err := strconv.ParseUint(c.Param("conversationID"), 10, 64)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid conversation id", http.StatusBadRequest))
			return
		}

		participant, svcErr := s.ChatService.OtherParticipant(uint(conversationID), userID)
		if svcErr != nil {
			respondServiceError(c, svcErr)
			return
		}

		response.JSON(c, "", http.StatusOK, participant, nil)
	}
}

// handleListUsers lists active users with presence, online first.
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		role := c.GetString("role")

		users, err := s.PresenceService.ListActiveUsers(userID, role)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		response.JSON(c, "", http.StatusOK, users, nil)
	}
}

func (s *Server) handleUserStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			return
		}

		targetID, err := strconv.ParseUint(c.Param("userID"), 10, 64)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("invalid user id", http.StatusBadRequest))
			return
		}

		status, svcErr := s.PresenceService.StatusOf(uint(targetID))
		if svcErr != nil {
			respondServiceError(c, svcErr)
			return
		}

		response.JSON(c, "", http.StatusOK, status, nil)
	}
}

// handleHeartbeat reports the requester as active. The polling path restores
// the online flag as well as last_seen, so a client without a live socket
// shows online while it keeps calling, and a lazily expired flag comes back.
func (s *Server) handleHeartbeat() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		s.PresenceService.SetOnline(userID)
		response.JSON(c, "ok", http.StatusOK, nil, nil)
	}
}

// handleUpload stores one file and returns the attachment reference the
// client includes in a later send.
func (s *Server) handleUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := currentUserID(c); !ok {
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, apiError.New("no file provided", http.StatusBadRequest))
			return
		}

		ref, svcErr := s.MediaService.StoreAttachment(fileHeader)
		if svcErr != nil {
			respondServiceError(c, svcErr)
			return
		}

		response.JSON(c, "file uploaded", http.StatusCreated, ref, nil)
	}
}
