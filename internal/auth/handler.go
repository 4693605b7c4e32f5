package auth

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/httputil"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/logging"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/metrics"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/ratelimit"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/session"
	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

// Rate limit purposes
const (
	purposeForgotPassword = "forgot_password"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	sessions    *session.Manager
	rateLimiter *ratelimit.Limiter
}

func NewHandler(service *Service, sessions *session.Manager, rateLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		service:     service,
		sessions:    sessions,
		rateLimiter: rateLimiter,
	}
}

// Login verifies credentials and starts a session.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := ratelimit.ClientIP(r)

	locked, err := h.rateLimiter.LoginLockRemaining(r.Context(), ip)
	if err != nil {
		logger.Error("failed to check login lock", "error", err.Error())
	} else if locked > 0 {
		logger.Warn("login locked for IP", "ip", ip)
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultRateLimited).Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.Seconds()))))
		respondError(w, "too many failed login attempts, please try again later", httputil.CodeTooManyAttempts, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if !decodeAndValidate(w, r, &req, logger) {
		return
	}
	if req.identifier() == "" {
		respondError(w, "email is required", httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.identifier(), req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, user.ErrNotFound) {
			result := metrics.ResultInvalid
			if errors.Is(err, user.ErrNotFound) {
				result = metrics.ResultNotFound
			}
			metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
			logger.Warn("login failed", "reason", result)

			if lock, err := h.rateLimiter.RecordLoginFailure(r.Context(), ip); err != nil {
				logger.Error("failed to record login failure", "error", err.Error())
			} else if lock > 0 {
				logger.Warn("login locked after repeated failures", "ip", ip, "lock", lock.String())
			}

			respondError(w, "invalid email or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondInternalError(w)
		return
	}

	if err := h.sessions.Login(w, r, u.ID); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("failed to start session", "error", err.Error())
		httputil.RespondInternalError(w)
		return
	}

	if err := h.rateLimiter.ResetLoginFailures(r.Context(), ip); err != nil {
		logger.Error("failed to reset login failures", "error", err.Error())
	}

	metrics.LoginAttemptsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	logger.Info("user logged in", "user_id", u.ID)

	httputil.RespondJSON(w, LoginResponse{
		User:    UserResponse{ID: u.ID, Email: u.Email},
		Message: "logged in successfully",
	}, http.StatusOK)
}

// Logout ends the current session, if any.
// POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := h.sessions.Logout(w, r); err != nil {
		logger.Warn("failed to clear session", "error", err.Error())
	}

	httputil.RespondMessage(w, "logged out successfully", http.StatusOK)
}

// Me returns the session user. Requires Middleware.RequireSession.
// GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := GetUserFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, UserResponse{ID: u.ID, Email: u.Email}, http.StatusOK)
}

// ForgotPassword acknowledges a reset request for a registered email.
// POST /forgot_password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req, logger) {
		return
	}
	email := user.NormalizeEmail(req.Email)
	ip := ratelimit.ClientIP(r)

	// Check IP rate limit (10 req/15 min)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purposeForgotPassword)
	if err != nil {
		// Continue despite error to avoid blocking legitimate requests
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.ResultRateLimited).Inc()
		respondError(w, "too many requests, please try again later", httputil.CodeRateLimited, http.StatusTooManyRequests)
		return
	}

	// Check email cooldown (2 min)
	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "email", email)
		metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.ResultRateLimited).Inc()
		respondError(w, "please wait before requesting another reset", httputil.CodeRateLimited, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purposeForgotPassword); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	if err := h.service.RequestPasswordReset(r.Context(), email); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.ResultNotFound).Inc()
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.ResultError).Inc()
		logger.Error("password reset request failed", "error", err.Error())
		httputil.RespondInternalError(w)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	metrics.PasswordResetRequestsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	httputil.RespondMessage(w, "password reset requested", http.StatusOK)
}

// ResetPassword sets a new password for the account.
// POST /reset_password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req, logger) {
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Email, req.NewPassword, req.Token)
	if err != nil {
		status, code, msg := h.resetErrorResponse(err)
		if status == http.StatusInternalServerError {
			metrics.PasswordResetsTotal.WithLabelValues(metrics.ResultError).Inc()
			logger.Error("password reset failed: internal error", "error", err.Error())
			httputil.RespondInternalError(w)
			return
		}

		result := metrics.ResultRejected
		if status == http.StatusNotFound {
			result = metrics.ResultNotFound
		}
		metrics.PasswordResetsTotal.WithLabelValues(result).Inc()
		logger.Warn("password reset rejected", "code", code)
		respondError(w, msg, code, status)
		return
	}

	metrics.PasswordResetsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	httputil.RespondMessage(w, "password updated", http.StatusOK)
}

func (h *Handler) resetErrorResponse(err error) (int, string, string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound, httputil.CodeUserNotFound, "user not found"
	case errors.Is(err, ErrPasswordReuse):
		return http.StatusBadRequest, httputil.CodePasswordReuse, ErrPasswordReuse.Error()
	case errors.Is(err, ErrPasswordRequired):
		return http.StatusBadRequest, httputil.CodeValidationFailed, "newPassword is required"
	case errors.Is(err, ErrPasswordTooShort):
		return http.StatusBadRequest, httputil.CodePasswordTooShort,
			fmt.Sprintf("password must be at least %d characters", h.service.MinPasswordLength())
	case errors.Is(err, ErrPasswordTooLong):
		return http.StatusBadRequest, httputil.CodePasswordTooLong, ErrPasswordTooLong.Error()
	case errors.Is(err, ErrInvalidResetToken):
		return http.StatusBadRequest, httputil.CodeInvalidResetToken, ErrInvalidResetToken.Error()
	default:
		return http.StatusInternalServerError, httputil.CodeInternalError, "internal server error"
	}
}

// decodeAndValidate writes a 400 and returns false when the body is unusable
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any, logger *logging.Logger) bool {
	if err := httputil.DecodeJSON(w, r, dst); err != nil {
		logger.Warn("invalid request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequest, http.StatusBadRequest)
		return false
	}
	if err := httputil.Validate(dst); err != nil {
		respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		return false
	}
	return true
}

func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}
