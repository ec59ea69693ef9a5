package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// EmailChannel delivers notifications over SMTP. Port 465 uses implicit
// TLS; everything else dials plain and upgrades via STARTTLS when the
// server offers it.
type EmailChannel struct {
	name     string
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
}

// NewEmailChannel creates an email channel from its spec
func NewEmailChannel(spec ChannelSpec) (*EmailChannel, error) {
	if spec.Host == "" {
		return nil, fmt.Errorf("email channel %s: host is required", spec.Name)
	}
	if spec.Port == 0 {
		return nil, fmt.Errorf("email channel %s: port is required", spec.Name)
	}
	if spec.From == "" {
		return nil, fmt.Errorf("email channel %s: from address is required", spec.Name)
	}
	if len(spec.To) == 0 {
		return nil, fmt.Errorf("email channel %s: at least one recipient is required", spec.Name)
	}

	return &EmailChannel{
		name:     spec.Name,
		host:     spec.Host,
		port:     spec.Port,
		username: spec.Username,
		password: spec.Password,
		from:     spec.From,
		to:       spec.To,
	}, nil
}

// Name implements Channel.Name
func (e *EmailChannel) Name() string { return e.name }

// Type implements Channel.Type
func (e *EmailChannel) Type() string { return ChannelTypeEmail }

// Send implements Channel.Send
func (e *EmailChannel) Send(ctx context.Context, msg *Message) error {
	client, err := e.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if e.username != "" && e.password != "" {
		auth := smtp.PlainAuth("", e.username, e.password, e.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range e.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(e.buildMessage(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data: %w", err)
	}

	return client.Quit()
}

// Close implements Channel.Close
func (e *EmailChannel) Close() error { return nil }

// connect dials the server, upgrading to TLS as the port dictates
func (e *EmailChannel) connect(ctx context.Context) (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	tlsConfig := &tls.Config{ServerName: e.host}

	if e.port == 465 {
		dialer := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: 30 * time.Second},
			Config:    tlsConfig,
		}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, e.host)
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, e.host)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return client, nil
}

// buildMessage renders the RFC 5322 message bytes
func (e *EmailChannel) buildMessage(msg *Message) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", e.from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(e.to, ", ")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject()))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", msg.Timestamp.Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body(), "\n", "\r\n"))

	return []byte(b.String())
}
