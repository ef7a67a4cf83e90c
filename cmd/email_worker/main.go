package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/healthcare-identity/config"
	"github.com/oksasatya/healthcare-identity/internal/infrastructure/notify"
	"github.com/oksasatya/healthcare-identity/pkg/helpers"
	"github.com/oksasatya/healthcare-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

var errMalformed = errors.New("malformed email job")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Consume(16)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()
	geo := mailtpl.IPAPIResolver{}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			err := deliver(ctx, msg.Body, geo, mg)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, errMalformed):
				helpers.LogError(logger, "dropping email job", err, logrus.Fields{"message_id": msg.MessageId})
				_ = msg.Nack(false, false)
			default:
				helpers.LogError(logger, "send failed; requeueing", err, nil)
				_ = msg.Nack(false, true)
			}
		}
		close(done)
	}()

	helpers.LogInfo(logger, "email worker listening", logrus.Fields{"queue": cfg.RabbitMQEmailQueue})
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// deliver renders one queued job and hands it to the sender. Jobs that cannot
// be decoded or rendered are reported as errMalformed and must not be retried.
func deliver(ctx context.Context, body []byte, geo mailtpl.GeoResolver, sender notify.Sender) error {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return errors.Join(errMalformed, err)
	}
	if err := notify.RenderJob(ctx, geo, &job); err != nil {
		return errors.Join(errMalformed, err)
	}
	if job.To == "" {
		return errMalformed
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return sender.Send(c, job.To, job.Subject, job.Text, job.HTML)
}
