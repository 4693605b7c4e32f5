package auth

import "github.com/google/uuid"

// LoginRequest accepts "username" as an alias of "email"
type LoginRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Username string `json:"username" validate:"max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

// identifier returns whichever of email/username was provided
func (r LoginRequest) identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	NewPassword string `json:"newPassword"`
	Token       string `json:"token" validate:"max=2048"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type LoginResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}
