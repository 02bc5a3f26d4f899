// Package notify delivers account emails and builds the frontend links they carry.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// Notifier sends a single message to recipient.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SMTPNotifier sends plain-text mail through an SMTP relay.
type SMTPNotifier struct {
	addr string
	auth smtp.Auth
	from string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPNotifier{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		auth:     auth,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	const op = "notify.SMTPNotifier.Send"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := n.sendMail(n.addr, n.auth, n.from, []string{recipient}, buildMessage(n.from, recipient, subject, body)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder

	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(b.String())
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(lgr *slog.Logger) *LogNotifier {
	return &LogNotifier{log: lgr}
}

func (n *LogNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	n.log.InfoContext(ctx, "mail not sent, log driver",
		slog.String("to", recipient),
		slog.String("subject", subject),
		slog.String("body", body),
	)

	return nil
}
