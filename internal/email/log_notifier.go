package email

import (
	"context"
	"time"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
)

// LogNotifier is used when SMTP is not configured. It records that a reset
// was requested and drops the token.
type LogNotifier struct {
	logger *logging.Logger
}

func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, to, _ string, expiresIn time.Duration) error {
	n.logger.Info("password reset requested; no mail transport configured",
		"email", to,
		"expires_in", expiresIn.String(),
	)
	return nil
}
