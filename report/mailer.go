package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"strings"
	"time"

	"f0oster/userreport/config"

	emailaddress "github.com/mcnijman/go-emailaddress"
)

// Mailer sends HTML reports over authenticated SMTP. The server is
// expected to offer STARTTLS; net/smtp refuses plain auth otherwise.
type Mailer struct {
	addr       string
	host       string
	username   string
	password   string
	from       string
	recipients []string
	now        func() time.Time
	send       func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	log        *slog.Logger
}

// NewMailer validates the addresses in cfg and reads the SMTP password from
// cfg.CredentialsFile.
func NewMailer(cfg config.MailConfig, logger *slog.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: SMTP_HOST is required")
	}

	from, err := parseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("mailer: sender: %w", err)
	}
	if len(cfg.Recipients) == 0 {
		return nil, errors.New("mailer: MAIL_RECIPIENTS is empty")
	}
	recipients := make([]string, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		addr, err := parseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("mailer: recipient: %w", err)
		}
		recipients = append(recipients, addr)
	}

	raw, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("mailer: read credentials %s: %w", cfg.CredentialsFile, err)
	}

	username := cfg.Username
	if username == "" {
		username = from
	}

	return &Mailer{
		addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:       cfg.Host,
		username:   username,
		password:   strings.TrimSpace(string(raw)),
		from:       from,
		recipients: recipients,
		now:        time.Now,
		send:       smtp.SendMail,
		log:        logger.With("component", "mailer"),
	}, nil
}

// Send delivers one HTML message to every configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := m.buildMessage(subject, htmlBody)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := m.send(m.addr, auth, m.from, m.recipients, msg); err != nil {
		return fmt.Errorf("mailer: send via %s: %w", m.addr, err)
	}

	m.log.InfoContext(ctx, "report sent", slog.String("subject", subject), slog.Int("recipients", len(m.recipients)))
	return nil
}

func (m *Mailer) buildMessage(subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(m.recipients, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(htmlBody, "\n", "\r\n"))
	return buf.Bytes()
}

func parseAddress(s string) (string, error) {
	addr, err := emailaddress.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", s, err)
	}
	return addr.String(), nil
}
