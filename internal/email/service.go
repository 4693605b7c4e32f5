package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"
	"strings"
	"time"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var resetTemplate = template.Must(template.ParseFS(templateFS, "templates/password_reset.html"))

type resetEmailData struct {
	Email     string
	ResetLink string
	ExpiresIn string
}

// SMTPConfig configures outgoing mail
type SMTPConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	From        string // defaults to User
	FrontendURL string
}

// Service sends password reset mail over SMTP
type Service struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg SMTPConfig) *Service {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &Service{cfg: cfg, sendMail: smtp.SendMail}
}

// SendPasswordReset mails a reset link carrying the token.
// Called from a goroutine; ctx bounds logging only since net/smtp takes no context.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string, expiresIn time.Duration) error {
	logger := logging.GetLoggerFromContext(ctx)

	body, err := renderPasswordReset(resetEmailData{
		Email:     to,
		ResetLink: s.resetLink(to, token),
		ExpiresIn: humanDuration(expiresIn),
	})
	if err != nil {
		return fmt.Errorf("render template: %w", err)
	}

	if err := s.send(to, "Reset your password", body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent", "email", to)
	return nil
}

func (s *Service) resetLink(to, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", to)
	return fmt.Sprintf("%s/reset_password?%s", strings.TrimRight(s.cfg.FrontendURL, "/"), q.Encode())
}

func (s *Service) send(to, subject, body string) error {
	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.cfg.From, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	return s.sendMail(addr, auth, s.cfg.From, []string{to}, msg)
}

func renderPasswordReset(data resetEmailData) (string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
