package services

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"github.com/medilinkng/clinichat/config"
	"google.golang.org/api/option"
)

// Notifier is the push delivery boundary the socket handler talks to.
type Notifier interface {
	NotifyOfflineRecipient(deviceToken, title, body string)
}

// NotificationService sends a best-effort push when a message lands for a
// user who is offline at send time. Disabled (nil client) when no Firebase
// credentials are configured; every path tolerates that.
type NotificationService struct {
	messagingClient *messaging.Client
}

func NewNotificationService(conf *config.Config) *NotificationService {
	if conf.GoogleApplicationCredentials == "" {
		log.Println("firebase credentials not configured, push notifications disabled")
		return &NotificationService{}
	}

	opt := option.WithCredentialsFile(conf.GoogleApplicationCredentials)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("error initializing Firebase app: %v", err)
		return &NotificationService{}
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("error getting Messaging client: %v", err)
		return &NotificationService{}
	}

	return &NotificationService{messagingClient: client}
}

// NotifyOfflineRecipient pushes a new-message notification to the device
// token. Failures are logged only; delivery of the chat message itself never
// depends on this.
func (n *NotificationService) NotifyOfflineRecipient(deviceToken, title, body string) {
	if n.messagingClient == nil || deviceToken == "" {
		return
	}

	message := &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	}

	if _, err := n.messagingClient.Send(context.Background(), message); err != nil {
		log.Println("Error sending message:", err)
		return
	}
}
