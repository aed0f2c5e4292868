package server

import (
	"fmt"
	"os"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	// By default gin.DefaultWriter = os.Stdout
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Minute, Limit: 10})
	limitLogin := limitRateForLogin(store)

	apirouter := router.Group("/api/v1")
	apirouter.POST("/auth/signup", s.handleSignup())
	apirouter.POST("/auth/login", limitLogin, s.handleLogin())

	// Websocket authenticates through a token query param because browser
	// websocket clients cannot set the Authorization header.
	apirouter.GET("/chat/ws", s.handleChatSocket())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/chat/conversations/:targetID", s.handleOpenConversation())
	authorized.GET("/chat/conversations", s.handleListConversations())
	authorized.GET("/chat/conversations/:conversationID/messages", s.handleListMessages())
	authorized.GET("/chat/conversations/:conversationID/participant", s.handleOtherParticipant())
	authorized.GET("/chat/users", s.handleListUsers())
	authorized.GET("/chat/status/:userID", s.handleUserStatus())
	authorized.POST("/chat/heartbeat", s.handleHeartbeat())
	authorized.POST("/chat/upload", s.handleUpload())
}
