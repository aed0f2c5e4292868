package main

import (
	"log"

	"github.com/medilinkng/clinichat/config"
	"github.com/medilinkng/clinichat/db"
	"github.com/medilinkng/clinichat/realtime"
	"github.com/medilinkng/clinichat/server"
	"github.com/medilinkng/clinichat/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	// Seed roles
	if err := db.SeedRoles(gormDB.DB); err != nil {
		log.Fatalf("error seeding roles: %v", err)
	}

	authRepo := db.NewAuthRepo(gormDB)
	chatRepo := db.NewChatRepo(gormDB)
	presenceRepo := db.NewPresenceRepo(gormDB)

	presenceService := services.NewPresenceService(presenceRepo, authRepo, conf)
	authService := services.NewAuthService(authRepo, conf)
	chatService := services.NewChatService(chatRepo, authRepo, presenceService, conf)
	mediaService := services.NewMediaService(conf)
	notificationService := services.NewNotificationService(conf)

	s := &server.Server{
		Config:              conf,
		AuthRepository:      authRepo,
		AuthService:         authService,
		ChatRepository:      chatRepo,
		ChatService:         chatService,
		PresenceService:     presenceService,
		MediaService:        mediaService,
		NotificationService: notificationService,
		Hub:                 realtime.NewHub(),
		DB:                  db.GormDB{},
	}

	s.Start()
}
