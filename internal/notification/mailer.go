package notification

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/config"
)

// InviteMailer delivers tenant invitation emails. Delivery is
// best-effort: the invitation lifecycle never fails because mail did
// not go out.
type InviteMailer interface {
	SendInvite(recipientEmail, tenantName, inviteURL string) error
}

// SMTPInviteMailer sends invite emails using an SMTP server.
type SMTPInviteMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewSMTPInviteMailer constructs a new SMTPInviteMailer from config.
func NewSMTPInviteMailer(cfg config.EmailConfig) (*SMTPInviteMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPInviteMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

// SendInvite dispatches an invitation email to a prospective user.
func (m *SMTPInviteMailer) SendInvite(recipientEmail, tenantName, inviteURL string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipientEmail, fmt.Sprintf("You have been invited to join %s", tenantName))

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("You've been invited to join the %s workspace on Craftplan.\n", tenantName))
	body.WriteString("Click the link below to accept the invitation and create your account:\n\n")
	body.WriteString(inviteURL + "\n\n")
	body.WriteString("This invite is valid for a limited time. If you did not expect this email, you can ignore it.\n\n")
	body.WriteString("Thanks,\nThe Craftplan Team\n")

	message := []byte(headers + body.String())

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{recipientEmail}, message)
}

// LogInviteMailer is the fallback when SMTP is not configured: it logs
// the invite URL instead of sending it.
type LogInviteMailer struct {
	logger zerolog.Logger
}

func NewLogInviteMailer(logger zerolog.Logger) *LogInviteMailer {
	return &LogInviteMailer{logger: logger.With().Str("mailer", "log").Logger()}
}

func (m *LogInviteMailer) SendInvite(recipientEmail, tenantName, inviteURL string) error {
	m.logger.Info().
		Str("recipient", recipientEmail).
		Str("tenant", tenantName).
		Str("invite_url", inviteURL).
		Msg("invite email logged (smtp not configured)")
	return nil
}
