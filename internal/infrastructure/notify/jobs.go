// Package notify delivers account notifications by email, either through the
// RabbitMQ email queue or straight to Mailgun.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/internal/application"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

// BuildJob turns a notification into a universal-template email job
func BuildJob(cfg *config.Config, n application.Notification, sentAt time.Time) (mailer.EmailJob, error) {
	opts := []mailtpl.Option{
		mailtpl.WithTime(sentAt),
		mailtpl.WithExpiresAt(n.ExpiresAt),
		mailtpl.WithIP(n.IP),
		mailtpl.WithUserAgent(n.UserAgent),
	}
	var data map[string]any
	switch n.Kind {
	case application.NotifyVerifyOTP:
		data = mailtpl.NewVerifyOTPData(cfg, n.Name, n.To, n.Code, opts...)
	case application.NotifyResetOTP:
		data = mailtpl.NewResetOTPData(cfg, n.Name, n.To, n.Code, n.Link, opts...)
	case application.NotifyWelcome:
		data = mailtpl.NewWelcomeData(cfg, n.Name, n.To, opts...)
	default:
		return mailer.EmailJob{}, fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	return mailer.EmailJob{To: n.To, Template: mailtpl.Universal, Data: data}, nil
}

// RenderJob fills Subject, Text and HTML of a templated job. Jobs without a
// template are returned as they are.
func RenderJob(ctx context.Context, geo mailtpl.GeoResolver, job *mailer.EmailJob) error {
	helpers.EnsureRecipientAndEmail(job)
	helpers.MapTypeToUniversal(job)
	if job.Template == "" {
		return nil
	}
	helpers.LocalizeTimesIfPossible(ctx, geo, job.Data)

	subject, text, html, err := mailtpl.Render(strings.ToLower(job.Template), job.Data)
	if err != nil {
		return fmt.Errorf("render %s: %w", job.Template, err)
	}
	if job.Subject == "" {
		job.Subject = subject
	}
	job.Text, job.HTML = text, html
	return nil
}
