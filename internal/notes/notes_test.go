package notes_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/quicknotes/internal/errs"
	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/testdb"
)

// staticConnector always hands out the same store, or the same error.
type staticConnector struct {
	store notes.Store
	err   error
}

func (c staticConnector) Connect(context.Context) (notes.Store, error) {
	return c.store, c.err
}

// fakeClock advances one millisecond per reading unless pinned.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore fails every operation.
type failingStore struct{ err error }

func (f failingStore) FindAllSorted(context.Context) ([]notes.Note, error) { return nil, f.err }
func (f failingStore) Insert(context.Context, notes.Note) (*notes.Note, error) {
	return nil, f.err
}
func (f failingStore) FindByID(context.Context, string) (*notes.Note, error) { return nil, f.err }
func (f failingStore) FindAndReplaceByID(context.Context, string, string, string, time.Time) (*notes.Note, error) {
	return nil, f.err
}
func (f failingStore) FindAndDeleteByID(context.Context, string) (*notes.Note, error) {
	return nil, f.err
}
func (f failingStore) Ping(context.Context) error { return f.err }

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// openService returns a service over a fresh in-memory store and a func
// that closes the store.
func openService(t fataler) (*notes.Service, *fakeClock, func()) {
	t.Helper()
	s, err := testdb.NewNotesDBInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	clock := newFakeClock()
	svc := notes.NewService(staticConnector{store: s}, notes.WithClock(clock.Now))
	return svc, clock, func() { s.Close(context.Background()) }
}

func newService(t *testing.T) (*notes.Service, *fakeClock) {
	t.Helper()
	svc, clock, closeFn := openService(t)
	t.Cleanup(closeFn)
	return svc, clock
}

func ptr(s string) *string { return &s }

// =============================================================================
// Property: create then read returns the normalized input
// =============================================================================

func testService_CreateReadRoundTrip(t *rapid.T, svc *notes.Service) {
	ctx := context.Background()
	title := rapid.StringMatching(`[ \t]{0,3}[a-zA-Z0-9][a-zA-Z0-9 .,!?]{0,40}[ \t]{0,3}`).Draw(t, "title")
	content := rapid.StringMatching(`[^\x00]{0,200}`).Draw(t, "content")

	created, err := svc.Create(ctx, notes.NewInput(title, content))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != strings.TrimSpace(title) {
		t.Fatalf("title %q, want %q", created.Title, strings.TrimSpace(title))
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("createdAt %v != updatedAt %v on create", created.CreatedAt, created.UpdatedAt)
	}

	got, err := svc.Read(ctx, created.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Title != created.Title || got.Content != content {
		t.Fatalf("read %+v, want title %q content %q", got, created.Title, content)
	}
}

func TestService_CreateReadRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	rapid.Check(t, func(rt *rapid.T) {
		testService_CreateReadRoundTrip(rt, svc)
	})
}

// =============================================================================
// Property: blank titles are rejected and nothing is stored
// =============================================================================

func testService_BlankTitleRejected(t *rapid.T, svc *notes.Service) {
	ctx := context.Background()
	before, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	blank := rapid.StringMatching(`[ \t\n\r]{0,5}`).Draw(t, "blank")
	in := notes.NewInput(blank, rapid.String().Draw(t, "content"))
	if rapid.Bool().Draw(t, "omitTitle") {
		in.Title = nil
	}

	_, err = svc.Create(ctx, in)
	if !errs.Is(err, errs.InvalidArgument) || errs.MessageOf(err) != "Title is required" {
		t.Fatalf("Create(blank) err = %v", err)
	}

	after, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("store changed: %d -> %d notes", len(before), len(after))
	}
}

func TestService_BlankTitleRejected(t *testing.T) {
	svc, _ := newService(t)
	rapid.Check(t, func(rt *rapid.T) {
		testService_BlankTitleRejected(rt, svc)
	})
}

// =============================================================================
// Property: list is ordered by updatedAt descending
// =============================================================================

func testService_ListOrdered(t *rapid.T) {
	svc, clock, closeFn := openService(t)
	defer closeFn()
	ctx := context.Background()

	var ids []string
	for i := 0; i < rapid.IntRange(1, 6).Draw(t, "creates"); i++ {
		n, err := svc.Create(ctx, notes.NewInput("n", ""))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, n.ID)
	}
	for i := 0; i < rapid.IntRange(0, 6).Draw(t, "updates"); i++ {
		clock.Advance(time.Duration(rapid.IntRange(0, 3).Draw(t, "gap")) * time.Second)
		id := rapid.SampledFrom(ids).Draw(t, "id")
		if _, err := svc.Update(ctx, id, notes.NewInput("u", "")); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != len(ids) {
		t.Fatalf("len %d, want %d", len(list), len(ids))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].UpdatedAt.Before(list[i].UpdatedAt) {
			t.Fatalf("list not sorted at %d: %v < %v", i, list[i-1].UpdatedAt, list[i].UpdatedAt)
		}
	}
}

func TestService_ListOrdered(t *testing.T) {
	rapid.Check(t, testService_ListOrdered)
}

func TestService_ListEmptyIsNonNil(t *testing.T) {
	svc, _ := newService(t)
	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

// =============================================================================
// Update semantics
// =============================================================================

func TestService_UpdateRefreshesUpdatedAtOnly(t *testing.T) {
	svc, clock := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, notes.NewInput("first", "body"))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := svc.Update(ctx, created.ID, notes.Input{Title: ptr("  second  ")})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "second", updated.Title)
	assert.Equal(t, "", updated.Content, "omitted content resets to empty")
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestService_UpdateValidatesBeforeLookup(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Update(context.Background(), "does-not-exist", notes.NewInput("   ", "x"))
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestService_UnknownIDIsNotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, id := range []string{"", "missing"} {
		_, err := svc.Read(ctx, id)
		assert.True(t, errs.Is(err, errs.NotFound), "Read(%q) = %v", id, err)

		_, err = svc.Update(ctx, id, notes.NewInput("t", ""))
		assert.True(t, errs.Is(err, errs.NotFound), "Update(%q) = %v", id, err)

		err = svc.Delete(ctx, id)
		assert.True(t, errs.Is(err, errs.NotFound), "Delete(%q) = %v", id, err)
		assert.Equal(t, "Not found", errs.MessageOf(err))
	}
}

func TestService_DeleteThenReadIsNotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, notes.NewInput("doomed", ""))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Read(ctx, created.ID)
	assert.True(t, errs.Is(err, errs.NotFound))

	err = svc.Delete(ctx, created.ID)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestService_TimestampsAreMillisecondUTC(t *testing.T) {
	s, err := testdb.NewNotesDBInMemory()
	require.NoError(t, err)
	defer s.Close(context.Background())

	local := time.FixedZone("x", 3600)
	svc := notes.NewService(staticConnector{store: s}, notes.WithClock(func() time.Time {
		return time.Date(2024, 5, 6, 7, 8, 9, 123456789, local)
	}))

	created, err := svc.Create(context.Background(), notes.NewInput("t", ""))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, created.CreatedAt.Location())
	assert.Equal(t, 123000000, created.CreatedAt.Nanosecond())
}

// =============================================================================
// Store failures
// =============================================================================

func TestService_StoreFailureIsGeneric(t *testing.T) {
	boom := errors.New("socket closed: mongodb://user:secret@db")
	svc := notes.NewService(staticConnector{store: failingStore{err: boom}})
	ctx := context.Background()

	_, err := svc.List(ctx)
	assert.Equal(t, "Failed to list notes", errs.MessageOf(err))
	assert.Equal(t, errs.Internal, errs.CodeOf(err))

	_, err = svc.Create(ctx, notes.NewInput("t", ""))
	assert.Equal(t, "Failed to create note", errs.MessageOf(err))

	_, err = svc.Read(ctx, "x")
	assert.Equal(t, "Failed to read note", errs.MessageOf(err))

	_, err = svc.Update(ctx, "x", notes.NewInput("t", ""))
	assert.Equal(t, "Failed to update note", errs.MessageOf(err))

	err = svc.Delete(ctx, "x")
	assert.Equal(t, "Failed to delete note", errs.MessageOf(err))
	assert.NotContains(t, errs.MessageOf(err), "secret")
}

func TestService_ConnectFailure(t *testing.T) {
	ctx := context.Background()

	missing := errs.New(errs.Unavailable, "Missing MONGODB_URI in environment")
	svc := notes.NewService(staticConnector{err: missing})

	_, err := svc.List(ctx)
	assert.True(t, errs.Is(err, errs.Unavailable))
	assert.Equal(t, "Failed to list notes", errs.MessageOf(err))

	err = svc.Health(ctx)
	assert.Equal(t, "Missing MONGODB_URI in environment", errs.MessageOf(err))

	svc = notes.NewService(staticConnector{err: errors.New("dial tcp: refused")})
	err = svc.Health(ctx)
	assert.True(t, errs.Is(err, errs.Unavailable))
	assert.Equal(t, "Store connection failed", errs.MessageOf(err))
}

func TestService_HealthPingFailure(t *testing.T) {
	svc := notes.NewService(staticConnector{store: failingStore{err: errors.New("timeout")}})
	err := svc.Health(context.Background())
	assert.Equal(t, "Store ping failed", errs.MessageOf(err))
}

func TestService_HealthOK(t *testing.T) {
	svc, _ := newService(t)
	assert.NoError(t, svc.Health(context.Background()))
}

// =============================================================================
// Helpers
// =============================================================================

func TestSortNotes_TieBreaks(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	list := []notes.Note{
		{ID: "a", CreatedAt: ts, UpdatedAt: ts},
		{ID: "b", CreatedAt: ts, UpdatedAt: ts},
		{ID: "c", CreatedAt: ts.Add(-time.Second), UpdatedAt: ts},
		{ID: "d", CreatedAt: ts, UpdatedAt: ts.Add(time.Second)},
	}
	notes.SortNotes(list)

	var ids []string
	for _, n := range list {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestMatches(t *testing.T) {
	n := notes.Note{Title: "Groceries", Content: "Buy MILK and eggs"}
	assert.True(t, notes.Matches(n, ""))
	assert.True(t, notes.Matches(n, "  "))
	assert.True(t, notes.Matches(n, "groc"))
	assert.True(t, notes.Matches(n, "milk"))
	assert.True(t, notes.Matches(n, " Eggs "))
	assert.False(t, notes.Matches(n, "bread"))
}

func TestContentPreview(t *testing.T) {
	assert.Equal(t, "", notes.ContentPreview("", 3))
	assert.Equal(t, "a\nb", notes.ContentPreview("a\nb", 3))
	assert.Equal(t, "a\nb\n...", notes.ContentPreview("a\nb\nc\nd", 2))
	assert.Equal(t, 0, notes.CountLines(""))
	assert.Equal(t, 3, notes.CountLines("a\nb\nc"))
}

func TestRenderPage_SanitizesMarkdown(t *testing.T) {
	page, err := notes.RenderPage(&notes.Note{
		Title:     "<b>Title</b>",
		Content:   "# Heading\n\n<script>alert(1)</script>\n\n[link](https://example.com)",
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	html := string(page)
	assert.Contains(t, html, "&lt;b&gt;Title&lt;/b&gt;")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Heading")
	assert.Contains(t, html, `href="https://example.com"`)
	assert.NotContains(t, html, "<script>")
}
