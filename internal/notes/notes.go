// Package notes implements note CRUD semantics on top of a document store.
package notes

import (
	"context"
	"errors"
	"time"

	"github.com/kuitang/quicknotes/internal/errs"
	"github.com/kuitang/quicknotes/internal/obs"
)

// Service handles note CRUD operations. It is stateless between calls; the
// store handle is obtained from the Connector on every operation.
type Service struct {
	conn Connector
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new notes service backed by conn.
func NewService(conn Connector, opts ...Option) *Service {
	s := &Service{conn: conn, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp returns the current time at the precision every backend keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *Service) store(ctx context.Context, op string) (Store, error) {
	st, err := s.conn.Connect(ctx)
	if err != nil {
		return nil, s.infraError(ctx, op, err)
	}
	return st, nil
}

// infraError logs a store failure and hides its detail from callers.
// A coded cause (e.g. a missing connection string) keeps its code.
func (s *Service) infraError(ctx context.Context, op string, err error) error {
	obs.From(ctx).With("pkg", "notes").Error("store operation failed", "op", op, "error", err)
	code := errs.Internal
	if errs.Is(err, errs.Unavailable) {
		code = errs.Unavailable
	}
	return errs.Wrap(code, "Failed to "+op, err)
}

// List returns all notes, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	st, err := s.store(ctx, "list notes")
	if err != nil {
		return nil, err
	}
	list, err := st.FindAllSorted(ctx)
	if err != nil {
		return nil, s.infraError(ctx, "list notes", err)
	}
	if list == nil {
		list = []Note{}
	}
	return list, nil
}

// Create validates in and stores a new note. Nothing is written when the
// title is blank.
func (s *Service) Create(ctx context.Context, in Input) (*Note, error) {
	title, content, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	st, err := s.store(ctx, "create note")
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	note, err := st.Insert(ctx, Note{
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, s.infraError(ctx, "create note", err)
	}
	return note, nil
}

// Read retrieves a note by ID.
func (s *Service) Read(ctx context.Context, id string) (*Note, error) {
	if id == "" {
		return nil, errs.New(errs.NotFound, "Not found")
	}
	st, err := s.store(ctx, "read note")
	if err != nil {
		return nil, err
	}
	note, err := st.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errs.Wrap(errs.NotFound, "Not found", err)
	}
	if err != nil {
		return nil, s.infraError(ctx, "read note", err)
	}
	return note, nil
}

// Update replaces the title and content of an existing note and refreshes
// UpdatedAt. Validation happens before the store is touched. Concurrent
// updates of the same note are last-write-wins.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Note, error) {
	title, content, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errs.New(errs.NotFound, "Not found")
	}

	st, err := s.store(ctx, "update note")
	if err != nil {
		return nil, err
	}
	note, err := st.FindAndReplaceByID(ctx, id, title, content, s.timestamp())
	if errors.Is(err, ErrNotFound) {
		return nil, errs.Wrap(errs.NotFound, "Not found", err)
	}
	if err != nil {
		return nil, s.infraError(ctx, "update note", err)
	}
	return note, nil
}

// Delete permanently removes a note.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errs.New(errs.NotFound, "Not found")
	}
	st, err := s.store(ctx, "delete note")
	if err != nil {
		return err
	}
	_, err = st.FindAndDeleteByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return errs.Wrap(errs.NotFound, "Not found", err)
	}
	if err != nil {
		return s.infraError(ctx, "delete note", err)
	}
	return nil
}

// Health connects to the store if needed and pings it.
func (s *Service) Health(ctx context.Context) error {
	st, err := s.conn.Connect(ctx)
	if err != nil {
		obs.From(ctx).With("pkg", "notes").Error("health check connect failed", "error", err)
		if errs.Is(err, errs.Unavailable) {
			return err
		}
		return errs.Wrap(errs.Unavailable, "Store connection failed", err)
	}
	if err := st.Ping(ctx); err != nil {
		obs.From(ctx).With("pkg", "notes").Error("health check ping failed", "error", err)
		return errs.Wrap(errs.Unavailable, "Store ping failed", err)
	}
	return nil
}
