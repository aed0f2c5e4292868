package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/medilinkng/clinichat/config"
	"github.com/medilinkng/clinichat/db"
	"github.com/medilinkng/clinichat/realtime"
	"github.com/medilinkng/clinichat/services"
)

type Server struct {
	Config              *config.Config
	AuthRepository      db.AuthRepository
	AuthService         services.AuthService
	ChatRepository      db.ChatRepository
	ChatService         services.ChatService
	PresenceService     services.PresenceService
	MediaService        services.MediaService
	NotificationService services.Notifier
	Hub                 *realtime.Hub
	DB                  db.GormDB

	sendMu sync.Map // room -> *sync.Mutex
}

// Start runs the HTTP server until it receives an interrupt, then drains
// in-flight requests.
func (s *Server) Start() {
	port := s.Config.Port
	if port == 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.setupRouter(),
	}

	go func() {
		log.Printf("listening on :%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
}
