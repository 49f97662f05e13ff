package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkcircle/inkcircle-api/internal/bus"
	"github.com/inkcircle/inkcircle-api/internal/config"
	"github.com/inkcircle/inkcircle-api/internal/logging"
	"github.com/inkcircle/inkcircle-api/internal/mail"
)

// The mail worker drains the MAIL stream and delivers each job over SMTP.
// A failed delivery naks the message so JetStream redelivers it.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Mail worker error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Queue.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required for the mail worker")
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting mail worker", "nats_url", cfg.Queue.NATSURL)

	b, err := bus.New(cfg.Queue.NATSURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer b.Close()

	if err := b.EnsureStream(mail.StreamName, mail.SubjectSend); err != nil {
		return fmt.Errorf("failed to ensure mail stream: %w", err)
	}

	sender := mail.NewSMTPSender(
		cfg.Mail.SMTPHost,
		cfg.Mail.SMTPPort,
		cfg.Mail.SMTPUser,
		cfg.Mail.SMTPPassword,
		cfg.Mail.FromAddress,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := b.Subscribe(ctx, mail.SubjectSend, mail.DurableConsumer, func(ctx context.Context, data []byte) error {
		var msg mail.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// A malformed job will never parse; ack it by returning nil so
			// it does not poison the queue
			logger.Error("dropping malformed mail job", "error", err.Error())
			return nil
		}

		if err := sender.Send(ctx, msg); err != nil {
			logger.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err.Error())
			return err
		}

		logger.Info("mail delivered", "to", msg.To, "subject", msg.Subject)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to mail stream: %w", err)
	}
	defer sub.Close()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown

	logger.Info("shutting down mail worker", "signal", sig.String())
	return nil
}
