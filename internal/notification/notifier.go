package notification

import (
	"LogSpectra/internal/config"
	"bytes"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier implements the model.Notifier interface for sending html emails.
type EmailNotifier struct {
	cfg      config.SMTPConfig
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		// PlainAuth will not send credentials until the server identifies itself as a trusted one.
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailNotifier{cfg: cfg, auth: auth, sendMail: smtp.SendMail}
}

// recipients splits the comma separated To field.
func (n *EmailNotifier) recipients() []string {
	var out []string
	for _, r := range strings.Split(n.cfg.To, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// buildMessage assembles the RFC 5322 message.
func (n *EmailNotifier) buildMessage(subject, body string, now time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString("To: " + strings.Join(n.recipients(), ", ") + "\r\n")
	buf.WriteString("From: " + n.cfg.From + "\r\n")
	buf.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	buf.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

// Send sends an email to the configured recipients.
func (n *EmailNotifier) Send(subject, body string) error {
	to := n.recipients()
	if len(to) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.sendMail(addr, n.auth, n.cfg.From, to, n.buildMessage(subject, body, time.Now())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
