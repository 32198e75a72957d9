package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
)

// Email sends alerts as plain mail, typically to a carrier SMS gateway.
// smtp.SendMail upgrades to STARTTLS when the server offers it.
type Email struct {
	addr      string
	auth      smtp.Auth
	sender    string
	recipient string
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{
		addr:      net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:      smtp.PlainAuth("", cfg.Sender, cfg.Password, cfg.SMTPHost),
		sender:    cfg.Sender,
		recipient: cfg.Recipient,
		send:      smtp.SendMail,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: MLB scraper\r\n\r\n%s\r\n",
		e.sender, e.recipient, strings.ReplaceAll(msg, "\n", "\r\n"))
	if err := e.send(e.addr, e.auth, e.sender, []string{e.recipient}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
