package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/tajious/ejare/internal/config"
	"github.com/tajious/ejare/internal/models"
)

type mailSender func(ctx context.Context, to []string, msg []byte) error

// EmailChannel sends plain-text UTF-8 mail over SMTP with opportunistic STARTTLS.
type EmailChannel struct {
	cfg     config.EmailConfig
	timeout time.Duration
	send    mailSender
}

func NewEmailChannel(cfg config.EmailConfig, timeout time.Duration) *EmailChannel {
	ch := &EmailChannel{cfg: cfg, timeout: timeout}
	ch.send = ch.deliver
	return ch
}

func (e *EmailChannel) Name() models.Channel { return models.ChannelEmail }

func (e *EmailChannel) Enabled() bool { return e.cfg.Enabled }

func (e *EmailChannel) Configured() bool {
	return e.cfg.Host != "" && e.cfg.Port > 0 && e.from() != ""
}

func (e *EmailChannel) from() string {
	if e.cfg.From != "" {
		return e.cfg.From
	}
	return e.cfg.User
}

func (e *EmailChannel) SendContractSigned(ctx context.Context, contract models.Contract) error {
	if contract.LandlordEmail == "" {
		return ErrNoRecipient
	}
	return e.sendText(ctx, contract.LandlordEmail, signedSubject(contract), signedMessage(contract))
}

func (e *EmailChannel) SendAccessCode(ctx context.Context, contract models.Contract) error {
	if contract.TenantEmail == "" {
		return ErrNoRecipient
	}
	subject := fmt.Sprintf("اطلاعات ورود به قرارداد %s", contract.ContractNumber)
	return e.sendText(ctx, contract.TenantEmail, subject, accessCodeMessage(contract))
}

func (e *EmailChannel) sendText(ctx context.Context, to, subject, body string) error {
	if !e.Configured() {
		return ErrNotConfigured
	}
	return e.send(ctx, []string{to}, buildMessage(e.from(), to, subject, body))
}

// TestConnection opens a session, negotiates TLS and authenticates without sending mail.
func (e *EmailChannel) TestConnection(ctx context.Context) error {
	if !e.Configured() {
		return ErrNotConfigured
	}
	client, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

func (e *EmailChannel) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if e.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(e.timeout))
	}

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp handshake: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: e.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if e.cfg.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
			if err := client.Auth(auth); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	return client, nil
}

func (e *EmailChannel) deliver(ctx context.Context, to []string, msg []byte) error {
	client, err := e.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(e.from()); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
