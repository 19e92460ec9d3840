// Package notify sends operator emails for conditions that stop the
// pipeline, like running the api key pool dry mid-run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"culturepipe/lib/keypool"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"address"`
	Password     string `json:"password"`
}

type Config struct {
	Smtp       SmtpConfig `json:"smtp"`
	Recipients []string   `json:"recipients"`
}

type Notifier struct {
	config Config
}

func NewNotifier(config Config) Notifier {
	return Notifier{config: config}
}

// Enabled reports whether notification is configured at all; every send
// method is a no-op when it is not.
func (n Notifier) Enabled() bool {
	return n.config.Smtp.Server != "" && len(n.config.Recipients) > 0
}

func (n Notifier) send(ctx context.Context, subject, body string) error {
	_, span := tracer.Start(ctx, "send")
	defer span.End()

	if !n.Enabled() {
		return nil
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Culture Pipeline <%s>", n.config.Smtp.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.config.Smtp.Server, n.config.Smtp.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", n.config.Smtp.EmailAddress, n.config.Smtp.Password, n.config.Smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// KeyPoolExhausted tells the operator the scrape halted because every api
// key burned through its quota.
func (n Notifier) KeyPoolExhausted(ctx context.Context, status keypool.Status, lastCompany string) error {
	body := fmt.Sprintf(`The review scrape stopped because every ScraperAPI key is out of credits.

Keys in pool:   %d
Keys exhausted: %d
Last company:   %s

Refill the quota or add keys, then run "culturepipe keys reset" and restart
the reviews stage. Progress so far is saved and the run will resume where it
stopped.`, status.Total, status.Total-status.Active, lastCompany)

	return n.send(ctx, "Culture pipeline halted: api keys exhausted", body)
}

// RunFinished sends a short completion report after a stage finishes.
func (n Notifier) RunFinished(ctx context.Context, stage, report string) error {
	return n.send(ctx, fmt.Sprintf("Culture pipeline: %s finished", stage), report)
}
