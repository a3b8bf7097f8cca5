package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access-level tag of a user. It is informational only.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// User represents an entry of the user directory.
type User struct {
	// ID is the unique identifier of the user, generated on creation.
	ID uuid.UUID `json:"id" db:"id"`

	// Email is the user's email address. It is unique across the directory.
	Email string `json:"correo" db:"correo"`

	// Name is the user's display or full name.
	Name string `json:"nombre" db:"nombre"`

	// Role is one of admin, user or moderator.
	Role Role `json:"rol" db:"rol"`

	// Available tells whether the user is currently available.
	Available bool `json:"disponibilidad" db:"disponibilidad"`

	// LastActiveAt is refreshed every time the user is fetched by id.
	LastActiveAt *time.Time `json:"ultimaVezActivo" db:"ultima_vez_activo"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserEventType names a change in the user directory.
type UserEventType string

const (
	UserCreated UserEventType = "user.created"
	UserUpdated UserEventType = "user.updated"
	UserDeleted UserEventType = "user.deleted"
)

// UserEvent is the payload published after a directory change.
type UserEvent struct {
	Type       UserEventType `json:"type"`
	User       User          `json:"user"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// UserExport is the document written by a directory export.
type UserExport struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Total       int       `json:"total"`
	Users       []User    `json:"usuarios"`
}
