package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Sender is satisfied by mailer.Mailgun
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var ErrNotConfigured = errors.New("notifier not configured")

// QueueNotifier publishes email jobs for cmd/email_worker to render and send
type QueueNotifier struct {
	Cfg *config.Config
	Pub Publisher
	Now func() time.Time
}

func NewQueueNotifier(cfg *config.Config, pub Publisher) *QueueNotifier {
	return &QueueNotifier{Cfg: cfg, Pub: pub, Now: time.Now}
}

func (q *QueueNotifier) Notify(ctx context.Context, n application.Notification) error {
	if q.Pub == nil {
		return ErrNotConfigured
	}
	job, err := BuildJob(q.Cfg, n, q.Now())
	if err != nil {
		return err
	}
	return q.Pub.PublishJSON(ctx, job)
}

// MailgunNotifier renders and sends in-process, for deployments without a queue
type MailgunNotifier struct {
	Cfg    *config.Config
	Sender Sender
	Geo    mailtpl.GeoResolver
	Now    func() time.Time
}

func NewMailgunNotifier(cfg *config.Config, sender Sender, geo mailtpl.GeoResolver) *MailgunNotifier {
	return &MailgunNotifier{Cfg: cfg, Sender: sender, Geo: geo, Now: time.Now}
}

func (m *MailgunNotifier) Notify(ctx context.Context, n application.Notification) error {
	if m.Sender == nil {
		return ErrNotConfigured
	}
	job, err := BuildJob(m.Cfg, n, m.Now())
	if err != nil {
		return err
	}
	if err := RenderJob(ctx, m.Geo, &job); err != nil {
		return err
	}
	return m.Sender.Send(ctx, job.To, job.Subject, job.Text, job.HTML)
}

// LogNotifier only records that a notification would have been sent.
// Codes are never written to the log.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (l LogNotifier) Notify(_ context.Context, n application.Notification) error {
	logger := l.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger.WithFields(logrus.Fields{
		"kind":       n.Kind,
		"to":         n.To,
		"expires_at": n.ExpiresAt,
	}).Info("notification suppressed (mail sending disabled)")
	return nil
}

var (
	_ application.Notifier = (*QueueNotifier)(nil)
	_ application.Notifier = (*MailgunNotifier)(nil)
	_ application.Notifier = LogNotifier{}
	_ Sender               = (*mailer.Mailgun)(nil)
)
