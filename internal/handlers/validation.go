package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/oficina-virtual/apiserver/internal/services"
	"github.com/oficina-virtual/apiserver/types"
)

const maxBodyBytes = 1 << 20

const (
	msgEmailRequired   = "El correo electrónico es obligatorio"
	msgEmailInvalid    = "Debe proporcionar un correo electrónico válido"
	msgNameRequired    = "El nombre es obligatorio"
	msgNameType        = "El nombre debe ser una cadena de texto"
	msgNameMin         = "El nombre debe tener al menos 2 caracteres"
	msgNameMax         = "El nombre no puede exceder 100 caracteres"
	msgRoleInvalid     = "El rol debe ser uno de: admin, user, moderator"
	msgAvailableType   = "La disponibilidad debe ser un valor booleano"
	msgInvalidBody     = "El cuerpo de la solicitud no es un JSON válido"
	msgValidationError = "Los datos enviados no son válidos"
)

// FieldError describes a single rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned when a request body is rejected before it
// reaches the service.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return msgValidationError
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Correo         string      `json:"correo" validate:"required,email"`
	Nombre         string      `json:"nombre" validate:"required,min=2,max=100"`
	Rol            *types.Role `json:"rol" validate:"omitnil,oneof=admin user moderator"`
	Disponibilidad *bool       `json:"disponibilidad"`
}

func (r CreateUserRequest) Input() services.CreateUserInput {
	return services.CreateUserInput{
		Email:     r.Correo,
		Name:      r.Nombre,
		Role:      r.Rol,
		Available: r.Disponibilidad,
	}
}

// UpdateUserRequest is the body of PATCH /users/{id}. Every field is optional.
type UpdateUserRequest struct {
	Correo         *string     `json:"correo" validate:"omitnil,email"`
	Nombre         *string     `json:"nombre" validate:"omitnil,min=2,max=100"`
	Rol            *types.Role `json:"rol" validate:"omitnil,oneof=admin user moderator"`
	Disponibilidad *bool       `json:"disponibilidad"`
}

func (r UpdateUserRequest) Input() services.UpdateUserInput {
	return services.UpdateUserInput{
		Email:     r.Correo,
		Name:      r.Nombre,
		Role:      r.Rol,
		Available: r.Disponibilidad,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// decodeAndValidate decodes a single JSON object into dst and runs its
// validation rules. Keys must match a field name exactly. Every rejected
// field is reported, not just the first.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))

	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return ValidationErrors{{Field: "body", Message: msgInvalidBody}}
	}
	if _, err := dec.Token(); err != io.EOF {
		return ValidationErrors{{Field: "body", Message: msgInvalidBody}}
	}

	fields := bindableFields(dst)
	var errs ValidationErrors
	mistyped := make(map[string]bool)
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		field, ok := fields[key]
		if !ok {
			errs = append(errs, FieldError{Field: key, Message: fmt.Sprintf("la propiedad %s no debería existir", key)})
			continue
		}
		if err := json.Unmarshal(raw[key], field.Addr().Interface()); err != nil {
			errs = append(errs, FieldError{Field: key, Message: typeMessage(key)})
			mistyped[key] = true
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if mistyped[fe.Field()] {
				continue
			}
			errs = append(errs, FieldError{Field: fe.Field(), Message: ruleMessage(fe.Field(), fe.Tag())})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// bindableFields indexes the settable fields of the struct dst points to by
// their JSON name.
func bindableFields(dst any) map[string]reflect.Value {
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	fields := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			fields[name] = v.Field(i)
		}
	}
	return fields
}

func typeMessage(field string) string {
	switch field {
	case "correo":
		return msgEmailInvalid
	case "nombre":
		return msgNameType
	case "rol":
		return msgRoleInvalid
	case "disponibilidad":
		return msgAvailableType
	}
	return fmt.Sprintf("%s tiene un tipo inválido", field)
}

func ruleMessage(field, tag string) string {
	switch field + "." + tag {
	case "correo.required":
		return msgEmailRequired
	case "correo.email":
		return msgEmailInvalid
	case "nombre.required":
		return msgNameRequired
	case "nombre.min":
		return msgNameMin
	case "nombre.max":
		return msgNameMax
	case "rol.oneof":
		return msgRoleInvalid
	}
	return fmt.Sprintf("%s no es válido", field)
}
