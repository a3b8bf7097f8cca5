package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oficina-virtual/apiserver/internal/store"
	"github.com/oficina-virtual/apiserver/types"
)

// memoryRepo is an in-memory UserRepository enforcing the unique correo constraint.
type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]types.User
	clock func() time.Time
}

func newMemoryRepo(clock func() time.Time) *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]types.User), clock: clock}
}

func (m *memoryRepo) List(ctx context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]types.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	now := m.clock()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = m.clock()
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastActiveAt = &at
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type recordingPublisher struct {
	events []types.UserEvent
	err    error
}

func (p *recordingPublisher) PublishUserEvent(ctx context.Context, event types.UserEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// stepClock advances one second on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T, opts ...UserServiceOption) (*UserService, *memoryRepo) {
	t.Helper()
	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := newMemoryRepo(clock.Now)
	opts = append([]UserServiceOption{WithClock(clock.Now)}, opts...)
	return NewUserService(repo, opts...), repo
}

func ptr[T any](v T) *T { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{Email: "juan@example.com", Name: "Juan Pérez"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != types.RoleUser {
		t.Fatalf("expected default role user, got %q", user.Role)
	}
	if !user.Available {
		t.Fatalf("expected default availability true")
	}
	if user.LastActiveAt == nil {
		t.Fatalf("expected last active to be set on create")
	}
	if user.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
}

func TestCreateKeepsExplicitRoleAndAvailability(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Email:     "mod@example.com",
		Name:      "Moderadora",
		Role:      ptr(types.RoleModerator),
		Available: ptr(false),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Role != types.RoleModerator || user.Available {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestCreateDuplicateEmailConflicts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateUserInput{Email: "dup@example.com", Name: "Uno"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, CreateUserInput{Email: "dup@example.com", Name: "Dos"})

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Email != "dup@example.com" {
		t.Fatalf("unexpected conflict email: %q", conflict.Email)
	}

	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
}

// racingRepo hides existing rows from the pre-check to simulate a concurrent insert.
type racingRepo struct {
	*memoryRepo
}

func (r racingRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func TestCreateConflictFromStorageConstraint(t *testing.T) {
	clock := &stepClock{}
	repo := racingRepo{newMemoryRepo(clock.Now)}
	svc := NewUserService(repo, WithClock(clock.Now))
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateUserInput{Email: "race@example.com", Name: "Uno"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(ctx, CreateUserInput{Email: "race@example.com", Name: "Dos"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError from constraint, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := svc.Create(ctx, CreateUserInput{Email: email, Name: "Nombre"}); err != nil {
			t.Fatalf("create %s: %v", email, err)
		}
	}

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 3 || users[0].Email != "c@example.com" || users[2].Email != "a@example.com" {
		t.Fatalf("unexpected order: %+v", users)
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	missing := uuid.NewString()

	checks := map[string]error{}
	_, checks["get"] = svc.Get(ctx, missing)
	_, checks["update"] = svc.Update(ctx, missing, UpdateUserInput{Name: ptr("Otro")})
	checks["delete"] = svc.Delete(ctx, missing)
	_, checks["malformed"] = svc.Get(ctx, "not-a-uuid")

	for op, err := range checks {
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("%s: expected NotFoundError, got %v", op, err)
		}
	}
}

func TestGetRefreshesLastActive(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.Get(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := svc.Get(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if second.LastActiveAt.Before(*first.LastActiveAt) {
		t.Fatalf("last active went backwards: %v then %v", first.LastActiveAt, second.LastActiveAt)
	}

	stored, _ := repo.GetByID(ctx, created.ID)
	if !stored.LastActiveAt.After(*created.LastActiveAt) {
		t.Fatalf("expected persisted last active to advance past creation")
	}
}

func TestUpdateNameOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "ana@example.com", Name: "Ana", Role: ptr(types.RoleAdmin), Available: ptr(false)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID.String(), UpdateUserInput{Name: ptr("X")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "X" {
		t.Fatalf("expected name X, got %q", updated.Name)
	}
	if updated.Email != created.Email || updated.Role != created.Role || updated.Available != created.Available {
		t.Fatalf("unexpected changes: before %+v after %+v", created, updated)
	}
	if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("identity changed: before %+v after %+v", created, updated)
	}
}

func TestUpdateEmailTakenConflicts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateUserInput{Email: "taken@example.com", Name: "Uno"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	target, err := svc.Create(ctx, CreateUserInput{Email: "mine@example.com", Name: "Dos"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(ctx, target.ID.String(), UpdateUserInput{Email: ptr("taken@example.com")})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	stored, _ := repo.GetByID(ctx, target.ID)
	if stored.Email != "mine@example.com" {
		t.Fatalf("email changed to %q", stored.Email)
	}
}

func TestUpdateSameEmailIsAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Update(ctx, created.ID.String(), UpdateUserInput{Email: ptr("ana@example.com")}); err != nil {
		t.Fatalf("update with same email: %v", err)
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "bye@example.com", Name: "Chau"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, created.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = svc.Get(ctx, created.ID.String())
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Error() != "Usuario con ID "+created.ID.String()+" no encontrado" {
		t.Fatalf("unexpected message: %q", nf.Error())
	}
}

func TestFindByEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, found, err := svc.FindByEmail(ctx, "nobody@example.com"); err != nil || found {
		t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
	}

	created, err := svc.Create(ctx, CreateUserInput{Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	user, found, err := svc.FindByEmail(ctx, "ana@example.com")
	if err != nil || !found || user.ID != created.ID {
		t.Fatalf("unexpected lookup: %+v found=%v err=%v", user, found, err)
	}
}

func TestEventsPublishedAndFailuresIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(t, WithEvents(pub))
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateUserInput{Email: "ana@example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("create should not fail on publish error: %v", err)
	}
	if _, err := svc.Update(ctx, created.ID.String(), UpdateUserInput{Name: ptr("Anita")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := svc.Delete(ctx, created.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []types.UserEventType{types.UserCreated, types.UserUpdated, types.UserDeleted}
	if len(pub.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pub.events))
	}
	for i, event := range pub.events {
		if event.Type != want[i] || event.User.ID != created.ID {
			t.Fatalf("event %d: unexpected %+v", i, event)
		}
	}
}
