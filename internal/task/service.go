package task

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/ratelimit"
	"github.com/redmonkez12/tasky/internal/session"
)

// Store is the persistence the service needs. Implementations must scope
// every read and write to the given user id.
type Store interface {
	List(ctx context.Context, userID uuid.UUID, f Filter) ([]*Task, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Task, error)
	Insert(ctx context.Context, t *Task) error
	Update(ctx context.Context, userID, id uuid.UUID, p Patch) (*Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Limiter is a check-and-consume rate limiter
type Limiter interface {
	Limit(ctx context.Context, key string, p ratelimit.Policy) (ratelimit.Result, error)
}

// Service is the task access layer. It enforces ownership, validates input
// and throttles creation.
type Service struct {
	store        Store
	limiter      Limiter
	createPolicy ratelimit.Policy
	logger       *logging.Logger
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, limiter Limiter, createPolicy ratelimit.Policy, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		limiter:      limiter,
		createPolicy: createPolicy,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAll returns the caller's tasks matching every supplied filter, newest first
func (s *Service) GetAll(ctx context.Context, sess *session.Session, f Filter) ([]*Task, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	tasks, err := s.store.List(ctx, userID, f)
	if err != nil {
		return nil, s.internal(ctx, "list tasks", err)
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	return tasks, nil
}

// GetByID returns the task if it exists and belongs to the caller
func (s *Service) GetByID(ctx context.Context, sess *session.Session, in ByIDInput) (*Task, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, ok := parseID(in.ID)
	if !ok {
		return nil, ErrNotFound
	}

	t, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, s.storeError(ctx, "get task", err)
	}
	return t, nil
}

// Create stores a new task owned by the caller, subject to the creation rate limit
func (s *Service) Create(ctx context.Context, sess *session.Session, in CreateInput) (*CreateResult, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rl, err := s.limiter.Limit(ctx, createLimitKey(userID), s.createPolicy)
	if err != nil {
		return nil, s.internal(ctx, "check rate limit", err)
	}
	if !rl.Allowed {
		s.log(ctx).Warn("task creation rate limited",
			"user_id", userID,
			"limit", rl.Limit,
		)
		return nil, rateLimitedError(rl.Limit, s.createPolicy.Window, rl.RetryAfter(s.now()))
	}

	now := s.timestamp()
	t := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      DefaultStatus,
		Priority:    DefaultPriority,
		DueDate:     in.DueDate,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}

	if err := s.store.Insert(ctx, t); err != nil {
		return nil, s.internal(ctx, "create task", err)
	}

	return &CreateResult{Task: t, Remaining: rl.Remaining}, nil
}

// Update applies the supplied fields to the caller's task
func (s *Service) Update(ctx context.Context, sess *session.Session, in UpdateInput) (*UpdateResult, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, ok := parseID(in.ID)
	if !ok {
		return nil, ErrNotFound
	}

	if _, err := s.store.Get(ctx, userID, id); err != nil {
		return nil, s.storeError(ctx, "get task", err)
	}

	p := Patch{
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		UpdatedAt:   s.timestamp(),
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		p.Title = &title
	}

	t, err := s.store.Update(ctx, userID, id, p)
	if err != nil {
		return nil, s.storeError(ctx, "update task", err)
	}
	return &UpdateResult{Task: t}, nil
}

// Delete removes the caller's task
func (s *Service) Delete(ctx context.Context, sess *session.Session, in ByIDInput) (*DeleteResult, error) {
	userID, err := requireUser(sess)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	id, ok := parseID(in.ID)
	if !ok {
		return nil, ErrNotFound
	}

	if _, err := s.store.Get(ctx, userID, id); err != nil {
		return nil, s.storeError(ctx, "get task", err)
	}

	if err := s.store.Delete(ctx, userID, id); err != nil {
		return nil, s.storeError(ctx, "delete task", err)
	}
	return &DeleteResult{Success: true}, nil
}

func requireUser(sess *session.Session) (uuid.UUID, error) {
	if !sess.Authenticated() {
		return uuid.Nil, ErrUnauthenticated
	}
	return sess.UserID, nil
}

// parseID reports false for ids that can never name a stored task
func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func createLimitKey(userID uuid.UUID) string {
	return "tasks:create:" + userID.String()
}

// timestamp truncates to the precision Postgres stores
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return s.internal(ctx, op, err)
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.log(ctx).Error("task operation failed", "op", op, "error", err)
	return internalError(op, err)
}

func (s *Service) log(ctx context.Context) *logging.Logger {
	return logging.FromContext(ctx, s.logger)
}
