package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/pkg/jobs"
)

const notificationJobType = "report_resolved"

// Notifier delivers a notification to the collaborator that owns user messaging.
type Notifier interface {
	Notify(ctx context.Context, notification models.Notification) error
}

// WebhookNotifier posts notifications as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	client *retryablehttp.Client
	url    string
}

// NewWebhookNotifier builds a notifier with bounded retries on 5xx and transport errors.
// Zero retries sends exactly one request per Notify call.
func NewWebhookNotifier(url string, timeout time.Duration, retries int, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retries < 0 {
		retries = 0
	}
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = &retryLogger{logger: logger.Named("webhook")}
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	return &WebhookNotifier{client: client, url: url}
}

// Notify sends the notification; any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, notification models.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode)
	}
	return nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger *zap.Logger
}

func (l *retryLogger) Error(msg string, kv ...interface{}) { l.logger.Sugar().Errorw(msg, kv...) }
func (l *retryLogger) Info(msg string, kv ...interface{})  { l.logger.Sugar().Debugw(msg, kv...) }
func (l *retryLogger) Debug(msg string, kv ...interface{}) { l.logger.Sugar().Debugw(msg, kv...) }
func (l *retryLogger) Warn(msg string, kv ...interface{})  { l.logger.Sugar().Warnw(msg, kv...) }

// LogNotifier writes notifications to the log when no webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *LogNotifier) Notify(ctx context.Context, notification models.Notification) error {
	n.logger.Info("reporter notification",
		zap.String("report_id", notification.ReportID),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("action", string(notification.Action)),
	)
	return nil
}

type notificationQueue interface {
	TryEnqueue(job jobs.Job) error
}

// NotificationService hands notifications to a background queue. Delivery is
// fire-and-forget: enqueue and delivery failures are logged and counted only.
type NotificationService struct {
	queue    notificationQueue
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService constructs the service. A nil queue disables dispatch.
func NewNotificationService(queue notificationQueue, notifier Notifier, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, notifier: notifier, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue after construction; the queue's handler is
// usually this service's Handle method.
func (s *NotificationService) AttachQueue(queue notificationQueue) {
	s.queue = queue
}

// Dispatch enqueues a notification without blocking.
func (s *NotificationService) Dispatch(notification models.Notification) {
	if s == nil || s.queue == nil || notification.RecipientID == "" {
		return
	}
	err := s.queue.TryEnqueue(jobs.Job{
		ID:      notification.ReportID,
		Type:    notificationJobType,
		Payload: notification,
	})
	if err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("notification not enqueued", zap.String("report_id", notification.ReportID), zap.Error(err))
	}
}

// Handle is the queue handler delivering one notification.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if s.notifier == nil {
		return errors.New("no notifier configured")
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("sent")
	return nil
}

// DeadLetter logs notifications that exhausted their retries.
func (s *NotificationService) DeadLetter(job jobs.Job, err error) {
	s.metrics.RecordNotification("dead_letter")
	s.logger.Error("notification abandoned", zap.String("job_id", job.ID), zap.Int("attempts", job.Attempt), zap.Error(err))
}
