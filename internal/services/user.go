package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oficina-virtual/apiserver/internal/store"
	"github.com/oficina-virtual/apiserver/types"
	"github.com/rs/zerolog"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventPublisher receives directory changes after they are persisted.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, event types.UserEvent) error
}

// CreateUserInput carries a validated create request. Nil pointers mean
// the field was not provided.
type CreateUserInput struct {
	Email     string
	Name      string
	Role      *types.Role
	Available *bool
}

// UpdateUserInput carries a validated partial update. Only non-nil fields
// are applied.
type UpdateUserInput struct {
	Email     *string
	Name      *string
	Role      *types.Role
	Available *bool
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

type UserServiceOption func(*UserService)

// WithEvents publishes directory changes to p.
func WithEvents(p EventPublisher) UserServiceOption {
	return func(s *UserService) { s.events = p }
}

func WithLogger(l zerolog.Logger) UserServiceOption {
	return func(s *UserService) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) UserServiceOption {
	return func(s *UserService) { s.now = now }
}

func NewUserService(repo UserRepository, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo: repo,
		log:  zerolog.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (types.User, error) {
	if _, found, err := s.FindByEmail(ctx, in.Email); err != nil {
		return types.User{}, err
	} else if found {
		return types.User{}, &ConflictError{Email: in.Email}
	}

	role := types.RoleUser
	if in.Role != nil {
		role = *in.Role
	}
	available := true
	if in.Available != nil {
		available = *in.Available
	}
	now := s.now()

	user, err := s.repo.Create(ctx, types.User{
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		Available:    available,
		LastActiveAt: &now,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.User{}, &ConflictError{Email: in.Email}
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, types.UserCreated, user)
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Get returns the user and records the access as its last activity.
func (s *UserService) Get(ctx context.Context, id string) (types.User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	now := s.now()
	if err := s.repo.TouchLastActive(ctx, user.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, &NotFoundError{ID: id}
		}
		return types.User{}, fmt.Errorf("touch last active: %w", err)
	}
	user.LastActiveAt = &now
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (types.User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if in.Email != nil && *in.Email != user.Email {
		existing, found, err := s.FindByEmail(ctx, *in.Email)
		if err != nil {
			return types.User{}, err
		}
		if found && existing.ID != user.ID {
			return types.User{}, &ConflictError{Email: *in.Email}
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.Available != nil {
		user.Available = *in.Available
	}

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, &NotFoundError{ID: id}
		case errors.Is(err, store.ErrDuplicateEmail):
			return types.User{}, &ConflictError{Email: user.Email}
		}
		return types.User{}, fmt.Errorf("update user: %w", err)
	}

	s.publish(ctx, types.UserUpdated, updated)
	return updated, nil
}

// Delete permanently removes the user row.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.publish(ctx, types.UserDeleted, user)
	return nil
}

// FindByEmail looks a user up by email. A missing user is reported through
// the boolean, not as an error.
func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, bool, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, false, nil
		}
		return types.User{}, false, fmt.Errorf("find user by email: %w", err)
	}
	return user, true, nil
}

func (s *UserService) get(ctx context.Context, id string) (types.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return types.User{}, &NotFoundError{ID: id}
	}

	user, err := s.repo.GetByID(ctx, parsed)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, &NotFoundError{ID: id}
		}
		return types.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) publish(ctx context.Context, eventType types.UserEventType, user types.User) {
	if s.events == nil {
		return
	}
	event := types.UserEvent{Type: eventType, User: user, OccurredAt: s.now()}
	if err := s.events.PublishUserEvent(ctx, event); err != nil {
		s.log.Warn().
			Err(err).
			Str("event", string(eventType)).
			Str("user_id", user.ID.String()).
			Msg("failed to publish user event")
	}
}
