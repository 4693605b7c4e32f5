package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodePasswordReuse      = "PASSWORD_REUSE"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodePasswordTooLong    = "PASSWORD_TOO_LONG"
	CodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeMissingAuth        = "MISSING_AUTH"
	CodeSessionExpired     = "SESSION_EXPIRED"
)
