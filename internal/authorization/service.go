package authorization

import (
	"context"
	"errors"
)

// Actor is the authenticated caller as asserted by the bearer token.
type Actor struct {
	UserID string
	Role   string
}

type Service interface {
	// Authorize returns ErrForbidden when the actor's role has no policy for
	// object and action.
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
