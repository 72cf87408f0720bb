package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
}

// CredentialsOption prefers base64 credentials from FCM_SERVICE_ACCOUNT_JSON
// and falls back to a local service account key file.
func CredentialsOption(localFilePath string) (option.ClientOption, error) {
	encodedCreds := os.Getenv("FCM_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FCM_SERVICE_ACCOUNT_JSON: %v", err)
		}
		log.Println("Firebase: Using credentials from FCM_SERVICE_ACCOUNT_JSON environment variable.")
		return option.WithCredentialsJSON(decoded), nil
	}

	if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON environment variable is not set", localFilePath)
	}
	log.Printf("Firebase: Using credentials from local file: %s.", localFilePath)
	return option.WithCredentialsFile(localFilePath), nil
}

func NewFCMService(ctx context.Context, opt option.ClientOption) (*FCMService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %v", err)
	}

	return &FCMService{client: client}, nil
}

// NotifyReward pushes to the user's topic so no device token bookkeeping is
// needed on the server.
func (s *FCMService) NotifyReward(ctx context.Context, r Reward) error {
	message := &messaging.Message{
		Topic: Topic(r.UserID),
		Notification: &messaging.Notification{
			Title: r.Title(),
			Body:  r.Body(),
		},
		Data: r.Data(),
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send reward push: %w", err)
	}

	log.Printf("FCM: Sent %s to %s (%s)", r.Kind, Topic(r.UserID), id)
	return nil
}
