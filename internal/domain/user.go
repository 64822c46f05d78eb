package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is read-only here; accounts are managed by the auth collaborator.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	PushToken *string
	CreatedAt time.Time
}
