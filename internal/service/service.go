package service

import (
	"context"

	"github.com/error-99/videocall/internal/domain"
	"github.com/google/uuid"
)

type UserInteractor interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Roster is the read-only presence projection exposed to the HTTP layer.
type Roster interface {
	Snapshot() []domain.Identity
}
