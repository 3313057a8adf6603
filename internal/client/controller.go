package client

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
)

// MaxTitleRunes is the longest title the form accepts.
const MaxTitleRunes = 140

const (
	// DeleteFailedNotice is shown when a delete request fails.
	DeleteFailedNotice = "Delete failed. See logs for details."
	// TitleRequiredMessage is shown when Submit is attempted with a blank title.
	TitleRequiredMessage = "Title is required"
)

var (
	// ErrSubmitInFlight is returned by Submit while another submit is outstanding.
	ErrSubmitInFlight = errors.New("client: submit already in progress")
	// ErrTitleRequired is returned by Submit when the form title is blank.
	ErrTitleRequired = errors.New("client: title is required")
	// ErrNotConfirmed is returned by Remove when the user declines.
	ErrNotConfirmed = errors.New("client: delete not confirmed")
)

// API is the subset of Client the controller needs.
type API interface {
	List(ctx context.Context) ([]notes.Note, error)
	Create(ctx context.Context, title, content string) (*notes.Note, error)
	Update(ctx context.Context, id, title, content string) (*notes.Note, error)
	Delete(ctx context.Context, id string) error
}

var _ API = (*Client)(nil)

// State is a point-in-time copy of the controller's state.
type State struct {
	Notes       []notes.Note
	FormTitle   string
	FormContent string
	// EditingID is empty when the form describes a new note.
	EditingID   string
	SearchQuery string
	LastError   string
	Notice      string
	Loading     bool
	Submitting  bool
}

// Editing reports whether the form edits an existing note.
func (s State) Editing() bool {
	return s.EditingID != ""
}

// Controller coordinates the form, the cached note list and the API.
// It is safe for concurrent use; no lock is held during network calls.
type Controller struct {
	api API

	mu    sync.Mutex
	state State
	// loadGen is bumped by every Load and by every successful Remove. A Load
	// only applies its result if loadGen still holds the value it started with.
	loadGen  uint64
	inflight int
}

// NewController creates a controller with an empty list.
func NewController(api API) *Controller {
	return &Controller{api: api, state: State{Notes: []notes.Note{}}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Notes = slices.Clone(c.state.Notes)
	return s
}

// Load replaces the cached list with the server's. Any failure leaves an
// empty list; the error is logged and not returned. A Load overtaken by a
// later Load or Remove discards its result.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.inflight++
	c.state.Loading = true
	c.mu.Unlock()

	list, err := c.api.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.state.Loading = c.inflight > 0
	if gen != c.loadGen {
		obs.Pkg("client").Debug("discarding stale note list", "gen", gen, "latest", c.loadGen)
		return
	}
	if err != nil {
		obs.Pkg("client").Warn("load notes failed", "error", err)
		c.state.Notes = []notes.Note{}
		return
	}
	c.state.Notes = list
}

// BeginEdit copies note into the form and marks it as being edited. The
// title is copied as stored, even past MaxTitleRunes.
func (c *Controller) BeginEdit(note notes.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FormTitle = note.Title
	c.state.FormContent = note.Content
	c.state.EditingID = note.ID
	c.state.LastError = ""
}

// CancelEdit clears the form and the editing marker.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FormTitle = ""
	c.state.FormContent = ""
	c.state.EditingID = ""
	c.state.LastError = ""
}

// SetTitle sets the form title, truncated to MaxTitleRunes.
func (c *Controller) SetTitle(title string) {
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = truncateRunes(title, MaxTitleRunes)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FormTitle = title
}

// SetContent sets the form content.
func (c *Controller) SetContent(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.FormContent = content
}

// SetSearch sets the filter query.
func (c *Controller) SetSearch(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SearchQuery = query
}

// DismissNotice clears the alert-level notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Notice = ""
}

// Submit creates or updates a note from the form. On failure the form is
// left as is and LastError describes the problem. On success the form is
// cleared and the list reloaded.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	title := c.state.FormTitle
	content := c.state.FormContent
	editingID := c.state.EditingID
	if strings.TrimSpace(title) == "" {
		c.state.LastError = TitleRequiredMessage
		c.mu.Unlock()
		return ErrTitleRequired
	}
	c.state.Submitting = true
	c.mu.Unlock()

	var err error
	if editingID != "" {
		_, err = c.api.Update(ctx, editingID, title, content)
	} else {
		_, err = c.api.Create(ctx, title, content)
	}

	c.mu.Lock()
	c.state.Submitting = false
	if err != nil {
		c.state.LastError = messageOf(err)
		c.mu.Unlock()
		obs.Pkg("client").Warn("submit note failed", "editing", editingID != "", "error", err)
		return err
	}
	c.state.FormTitle = ""
	c.state.FormContent = ""
	c.state.EditingID = ""
	c.state.LastError = ""
	c.mu.Unlock()

	c.Load(ctx)
	return nil
}

// Remove deletes the note with id once confirm approves. On success the
// note is dropped from the cached list; on failure a notice is set and the
// list is left alone.
func (c *Controller) Remove(ctx context.Context, id string, confirm func() bool) error {
	if confirm == nil || !confirm() {
		return ErrNotConfirmed
	}

	if err := c.api.Delete(ctx, id); err != nil {
		obs.Pkg("client").Error("delete note failed", "note_id", id, "error", err)
		c.mu.Lock()
		c.state.Notice = DeleteFailedNotice
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadGen++
	c.state.Notes = slices.DeleteFunc(slices.Clone(c.state.Notes), func(n notes.Note) bool {
		return n.ID == id
	})
	return nil
}

// Filtered returns the cached notes matching the search query.
func (c *Controller) Filtered() []notes.Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Filter(c.state.Notes, c.state.SearchQuery)
}

// Filter returns the notes whose title or content contains query,
// ignoring case. A blank query returns every note. list is not modified.
func Filter(list []notes.Note, query string) []notes.Note {
	out := make([]notes.Note, 0, len(list))
	for _, n := range list {
		if notes.Matches(n, query) {
			out = append(out, n)
		}
	}
	return out
}

// messageOf extracts the user-facing text of a request failure.
func messageOf(err error) string {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.Message
	}
	if errors.Is(err, ErrMalformedPayload) {
		return "Unexpected response from server"
	}
	return "Could not reach the server"
}
