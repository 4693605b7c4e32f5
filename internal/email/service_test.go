package email

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(capture *capturedMail, sendErr error) *Service {
	s := NewService(SMTPConfig{
		Host:        "smtp.example.com",
		Port:        "587",
		User:        "noreply@example.com",
		Password:    "secret",
		FrontendURL: "https://app.example.com/",
	})
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*capture = capturedMail{addr: addr, from: from, to: to, msg: string(msg)}
		return sendErr
	}
	return s
}

func TestService_SendPasswordReset(t *testing.T) {
	var mail capturedMail
	s := newTestService(&mail, nil)

	err := s.SendPasswordReset(context.Background(), "user@example.com", "v4.local.tok", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "noreply@example.com", mail.from)
	assert.Equal(t, []string{"user@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Reset your password\r\n")
	assert.Contains(t, mail.msg, "expires in 1 hour")

	wantLink := "https://app.example.com/reset_password?" + url.Values{
		"email": {"user@example.com"},
		"token": {"v4.local.tok"},
	}.Encode()
	// html/template escapes & in attributes
	assert.Contains(t, mail.msg, strings.ReplaceAll(wantLink, "&", "&amp;"))
}

func TestService_SendPasswordReset_Error(t *testing.T) {
	var mail capturedMail
	s := newTestService(&mail, errors.New("connection refused"))

	err := s.SendPasswordReset(context.Background(), "user@example.com", "tok", time.Hour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send email")
}

func TestRenderPasswordReset_Escapes(t *testing.T) {
	body, err := renderPasswordReset(resetEmailData{Email: "<script>@x.y", ResetLink: "https://x", ExpiresIn: "1 hour"})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>@")
	assert.Contains(t, body, "&lt;script&gt;@x.y")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
	assert.Equal(t, "90 minutes", humanDuration(90*time.Minute))
	assert.Equal(t, "10s", humanDuration(10*time.Second))
}

func TestLogNotifier_DoesNotLogToken(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(logging.NewWithWriter(&buf, logging.Options{}))

	require.NoError(t, n.SendPasswordReset(context.Background(), "user@example.com", "v4.local.SECRET", time.Hour))

	assert.Contains(t, buf.String(), "user@example.com")
	assert.NotContains(t, buf.String(), "SECRET")
}
