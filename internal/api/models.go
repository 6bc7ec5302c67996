package api

import "time"

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID int64 `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresAt is the ISO 8601 timestamp when the access token expires
	ExpiresAt string `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// UpdateUserRequest defines the payload for updating the authenticated
// user's account details.
type UpdateUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ChangePasswordRequest defines the payload for the password change endpoint.
// The current password must be supplied and verified before the change is
// applied.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=12,max=72"`
}

// GlucoseSubmitRequest defines the payload for submitting a blood glucose
// reading. A client timestamp may be supplied and is sanity-checked, but the
// recorded timestamp is always assigned by the worker at persistence time.
type GlucoseSubmitRequest struct {
	Value     float64    `json:"blood_glucose" validate:"required,gt=0"`
	Unit      string     `json:"unit"          validate:"required,oneof=mg/dL mmol/L"`
	Meal      string     `json:"meal"          validate:"required,oneof=pre-meal post-meal fasting before-bed"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// PressureSubmitRequest defines the payload for submitting a blood pressure
// reading. A unit field is accepted for client convenience but ignored;
// pressure is always stored in mm Hg. The timestamp is treated the same way
// as for glucose.
type PressureSubmitRequest struct {
	Systolic  int        `json:"systolic"       validate:"required,gt=0"`
	Diastolic int        `json:"diastolic"      validate:"required,gt=0"`
	Unit      string     `json:"unit,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// SubmitResponse defines the response for accepted measurement submissions.
// The submission is queued, not yet persisted, when this is returned.
type SubmitResponse struct {
	Status string `json:"status"`
}
