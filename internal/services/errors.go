package services

import "fmt"

// NotFoundError reports a user id with no matching record.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Usuario con ID %s no encontrado", e.ID)
}

// ConflictError reports an email already held by another user.
type ConflictError struct {
	Email string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("El correo electrónico %s ya está registrado", e.Email)
}
