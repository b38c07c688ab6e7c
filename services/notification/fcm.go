package notification

import (
	"context"
	"fmt"
	"time"

	notificationRepo "pitstop/database/repository/notification"
	userRepo "pitstop/database/repository/user"
	"pitstop/models"
	"pitstop/utils"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FCMService is the production implementation. Every notification is
// persisted to the delivery log first (the privacy export and erasure paths
// read that log), then pushed over FCM when the user has a token.
type FCMService struct {
	Users userRepo.UserRepository
	Log   notificationRepo.NotificationRepository
}

func NewFCMService(users userRepo.UserRepository, log notificationRepo.NotificationRepository) (*FCMService, error) {
	if users == nil || log == nil {
		return nil, fmt.Errorf("notification service initialization error: user repo or log repo is nil")
	}
	return &FCMService{Users: users, Log: log}, nil
}

func (s *FCMService) Notify(ctx context.Context, userID, notifType, title, body string, data map[string]string) error {
	logger := utils.GetLogger()

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify: could not load user %s: %w", userID, err)
	}
	if u == nil || u.Deactivated {
		return nil
	}

	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["type"]; !ok {
		data["type"] = notifType
	}

	delivered := false
	if u.FCMToken != "" {
		msg := &messaging.Message{
			Token: u.FCMToken,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					ChannelID: "high_priority",
					Sound:     "default",
				},
			},
		}
		if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
			logger.Warn("notify: FCM send failed",
				zap.String("userID", userID),
				zap.String("type", notifType),
				zap.Error(err))
		} else {
			delivered = true
		}
	}

	entry := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Data:      data,
		Delivered: delivered,
		CreatedAt: time.Now(),
	}
	if err := s.Log.Insert(ctx, entry); err != nil {
		return fmt.Errorf("notify: failed to record notification: %w", err)
	}
	return nil
}
