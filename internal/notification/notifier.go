package notification

import (
	"context"
	"fmt"

	fcm "firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Notifier delivers generation outcome notifications to story authors. Both
// calls are best-effort from the pipeline's point of view: the orchestrator
// logs a failure and moves on.
type Notifier interface {
	NotifyStoryReady(ctx context.Context, userID, title, prompt string) error
	NotifyStoryFailed(ctx context.Context, userID, prompt, errorDetail string) error
}

// --- Logging stub ---

type stubNotifier struct {
	logger *zap.Logger
}

// NewStubNotifier returns a Notifier that only logs. Used when FCM is not
// configured and in tests.
func NewStubNotifier(logger *zap.Logger) Notifier {
	return &stubNotifier{logger: logger.Named("stub_notifier")}
}

func (s *stubNotifier) NotifyStoryReady(ctx context.Context, userID, title, prompt string) error {
	s.logger.Info("STUB: story ready notification",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("prompt", prompt))
	return nil
}

func (s *stubNotifier) NotifyStoryFailed(ctx context.Context, userID, prompt, errorDetail string) error {
	s.logger.Info("STUB: story failure notification",
		zap.String("user_id", userID),
		zap.String("prompt", prompt),
		zap.String("error", errorDetail))
	return nil
}

// --- FCM notifier ---

type fcmNotifier struct {
	client *fcm.Client
	logger *zap.Logger
}

// NewFCMNotifier creates a Notifier pushing to the per-user FCM topic. Users
// subscribe to their topic on sign-in, which avoids device-token bookkeeping
// on this side.
func NewFCMNotifier(client *fcm.Client, logger *zap.Logger) Notifier {
	return &fcmNotifier{
		client: client,
		logger: logger.Named("fcm_notifier"),
	}
}

func (n *fcmNotifier) NotifyStoryReady(ctx context.Context, userID, title, prompt string) error {
	return n.send(ctx, userID, fcm.Notification{
		Title: "Your story is ready!",
		Body:  fmt.Sprintf("%q has finished generating.", title),
	}, map[string]string{"event": "story_ready", "prompt": prompt})
}

func (n *fcmNotifier) NotifyStoryFailed(ctx context.Context, userID, prompt, errorDetail string) error {
	return n.send(ctx, userID, fcm.Notification{
		Title: "Story generation failed",
		Body:  fmt.Sprintf("We couldn't finish your story for %q. Please try again.", prompt),
	}, map[string]string{"event": "story_failed", "error": errorDetail})
}

func (n *fcmNotifier) send(ctx context.Context, userID string, notification fcm.Notification, data map[string]string) error {
	msg := &fcm.Message{
		Topic:        "user_" + userID,
		Notification: &notification,
		Data:         data,
		Android: &fcm.AndroidConfig{
			Priority: "high",
		},
	}
	id, err := n.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	n.logger.Debug("Notification sent", zap.String("user_id", userID), zap.String("message_id", id))
	return nil
}
