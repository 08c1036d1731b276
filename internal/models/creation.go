package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreationRequest is the POST /v1/creations payload.
// creation_token is generated by the client and persisted with the record so
// that later listings can be matched against the client's pending entries.
type CreationRequest struct {
	TargetID      string         `json:"target_id" validate:"required,max=128"`
	Method        string         `json:"method" validate:"required,max=64"`
	Args          map[string]any `json:"args,omitempty"`
	CreationToken string         `json:"creation_token" validate:"required,max=64,startswith=crt_"`
	MutateOfID    string         `json:"mutate_of_id,omitempty" validate:"omitempty,max=128"`
}

// Validate checks the request against its struct tags.
func (r *CreationRequest) Validate() error {
	return validate.Struct(r)
}

// Creation is the authoritative record owned by the server.
type Creation struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	TargetID      string         `json:"target_id"`
	Method        string         `json:"method"`
	Args          map[string]any `json:"args,omitempty"`
	CreationToken string         `json:"creation_token"`
	MutateOfID    string         `json:"mutate_of_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// CreationResponse is returned by POST /v1/creations.
// Duplicate indicates idempotent success (the token was already persisted).
type CreationResponse struct {
	Creation         Creation `json:"creation"`
	CreditsRemaining int64    `json:"credits_remaining"`
	Duplicate        bool     `json:"duplicate"`
}

// InsufficientCreditsResponse is the 402 body.
type InsufficientCreditsResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Current  int64  `json:"current"`
	Required int64  `json:"required"`
}

// ListCreationsResponse is returned by GET /v1/creations, newest first.
type ListCreationsResponse struct {
	Creations []Creation `json:"creations"`
}

// CreditsResponse is returned by GET /v1/credits.
type CreditsResponse struct {
	Balance int64 `json:"balance"`
}
