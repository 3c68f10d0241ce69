package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/events"
)

// NotificationService mirrors domain events to the operations log and an
// optional webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	webhookURL string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, webhookURL string) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		webhookURL: webhookURL,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSubmissionSaved, n.handleSubmissionSaved)
	n.dispatcher.Subscribe(events.EventRosterAdded, n.handleRosterChanged)
	n.dispatcher.Subscribe(events.EventRosterReactivated, n.handleRosterChanged)
	n.dispatcher.Subscribe(events.EventRosterDeactivated, n.handleRosterChanged)
	n.dispatcher.Subscribe(events.EventRosterPurged, n.handleRosterChanged)
}

func (n *NotificationService) handleSubmissionSaved(ctx context.Context, event events.Event) error {
	n.logger.Info("SubmissionSaved", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRosterChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("RosterChanged", zap.String("type", string(event.Type)), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.webhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.webhookURL),
		zap.String("event_type", string(event.Type)))
}
