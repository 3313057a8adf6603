package s3client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/quicknotes/internal/notes"
)

const jsonContentType = "application/json"

// NoteStore keeps one JSON object per note under prefix. S3 has no
// server-side ordering or conditional replace, so listing fetches every
// document and sorts in memory, and concurrent updates are last-write-wins.
type NoteStore struct {
	client *Client
	prefix string
	newID  func() string
}

var _ notes.Store = (*NoteStore)(nil)

// NewNoteStore creates a store rooted at prefix ("notes/" when empty).
func NewNoteStore(client *Client, prefix string) *NoteStore {
	if prefix == "" {
		prefix = "notes/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &NoteStore{
		client: client,
		prefix: prefix,
		newID:  func() string { return uuid.New().String() },
	}
}

func (s *NoteStore) key(id string) string {
	return s.prefix + id + ".json"
}

// validID rejects anything that is not a UUID so request ids can never
// address keys outside the prefix.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *NoteStore) get(ctx context.Context, key string) (*notes.Note, error) {
	data, err := s.client.GetObject(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, notes.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var n notes.Note
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("s3client: corrupt note document %q: %w", key, err)
	}
	return &n, nil
}

func (s *NoteStore) put(ctx context.Context, n *notes.Note) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("s3client: failed to encode note: %w", err)
	}
	return s.client.PutObject(ctx, s.key(n.ID), data, jsonContentType)
}

// FindAllSorted returns every note, most recently updated first.
func (s *NoteStore) FindAllSorted(ctx context.Context) ([]notes.Note, error) {
	keys, err := s.client.ListKeys(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	list := make([]notes.Note, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		n, err := s.get(ctx, key)
		if errors.Is(err, notes.ErrNotFound) {
			// Deleted between list and get.
			continue
		}
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	notes.SortNotes(list)
	return list, nil
}

// Insert stores a new note under a fresh UUID.
func (s *NoteStore) Insert(ctx context.Context, note notes.Note) (*notes.Note, error) {
	note.ID = s.newID()
	if err := s.put(ctx, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// FindByID retrieves a note by id.
func (s *NoteStore) FindByID(ctx context.Context, id string) (*notes.Note, error) {
	if !validID(id) {
		return nil, notes.ErrNotFound
	}
	return s.get(ctx, s.key(id))
}

// FindAndReplaceByID overwrites title, content and UpdatedAt.
func (s *NoteStore) FindAndReplaceByID(ctx context.Context, id, title, content string, updatedAt time.Time) (*notes.Note, error) {
	n, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Title = title
	n.Content = content
	n.UpdatedAt = updatedAt.UTC()
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}
	if err := s.put(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// FindAndDeleteByID removes a note and returns it.
func (s *NoteStore) FindAndDeleteByID(ctx context.Context, id string) (*notes.Note, error) {
	n, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.client.DeleteObject(ctx, s.key(id)); err != nil {
		return nil, err
	}
	return n, nil
}

// Ping checks the bucket is reachable.
func (s *NoteStore) Ping(ctx context.Context) error {
	return s.client.HeadBucket(ctx)
}
