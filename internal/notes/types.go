package notes

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/kuitang/quicknotes/internal/errs"
)

// ErrNotFound is returned by Store implementations when no note has the
// requested id. Ids that are malformed for a backend count as not found.
var ErrNotFound = errors.New("note not found")

// Note is the only persisted entity.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is a decoded create/update request body.
// Pointers distinguish an omitted field from an empty one.
type Input struct {
	Title   *string `json:"title"`
	Content *string `json:"content,omitempty"`
}

// NewInput builds an Input from plain values.
func NewInput(title, content string) Input {
	return Input{Title: &title, Content: &content}
}

// Normalize validates the input and applies defaults: the title is trimmed
// and must be non-empty, an omitted content becomes "".
func (in Input) Normalize() (title, content string, err error) {
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if title == "" {
		return "", "", errs.New(errs.InvalidArgument, "Title is required")
	}
	if in.Content != nil {
		content = *in.Content
	}
	return title, content, nil
}

// Store is the document collection holding notes. Implementations assign
// ids on Insert and must return ErrNotFound for unknown ids.
type Store interface {
	// FindAllSorted returns every note, most recently updated first.
	FindAllSorted(ctx context.Context) ([]Note, error)
	// Insert stores a new note and returns it with its assigned id.
	Insert(ctx context.Context, note Note) (*Note, error)
	FindByID(ctx context.Context, id string) (*Note, error)
	// FindAndReplaceByID replaces title and content, sets UpdatedAt and
	// returns the note as stored after the write.
	FindAndReplaceByID(ctx context.Context, id, title, content string, updatedAt time.Time) (*Note, error)
	// FindAndDeleteByID removes the note and returns what was removed.
	FindAndDeleteByID(ctx context.Context, id string) (*Note, error)
	Ping(ctx context.Context) error
}

// Connector hands out the shared store handle, connecting on first use.
type Connector interface {
	Connect(ctx context.Context) (Store, error)
}

// SortNotes orders notes by UpdatedAt descending, then CreatedAt descending,
// then id descending. Backends without server-side sorting use it.
func SortNotes(list []Note) {
	slices.SortStableFunc(list, func(a, b Note) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
