// Package client talks to the notes HTTP API and holds the interactive
// client's state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kuitang/quicknotes/internal/notes"
)

const (
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
	// rawTextLimit is how many characters of a non-JSON body are shown.
	rawTextLimit = 200

	defaultTimeout = 15 * time.Second
)

// ErrMalformedPayload is returned when a 2xx response body does not have
// the expected shape.
var ErrMalformedPayload = errors.New("client: malformed response payload")

// Kind classifies how an error message was extracted from a response.
type Kind int

const (
	// KindStructured is a JSON body carrying an "error" field.
	KindStructured Kind = iota
	// KindRawText is a non-JSON body, shown truncated.
	KindRawText
	// KindStatusOnly means nothing useful could be read from the body.
	KindStatusOnly
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindRawText:
		return "raw_text"
	default:
		return "status_only"
	}
}

// ResponseError is a non-2xx response.
type ResponseError struct {
	StatusCode int
	Kind       Kind
	Message    string
}

func (e *ResponseError) Error() string {
	return e.Message
}

// ClassifyResponse turns a failed response into a ResponseError. It always
// produces a message. contentType decides whether body is read as JSON; when
// it is empty the body is sniffed instead.
func ClassifyResponse(statusCode int, contentType string, body []byte) *ResponseError {
	statusLine := strings.TrimSpace(fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)))
	statusOnly := &ResponseError{StatusCode: statusCode, Kind: KindStatusOnly, Message: statusLine}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return statusOnly
	}

	if !isJSON(contentType, trimmed) {
		return &ResponseError{StatusCode: statusCode, Kind: KindRawText, Message: truncateRunes(string(trimmed), rawTextLimit)}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return statusOnly
	}
	if msg := errorText(payload["error"]); msg != "" {
		return &ResponseError{StatusCode: statusCode, Kind: KindStructured, Message: msg}
	}
	return statusOnly
}

func isJSON(contentType string, body []byte) bool {
	if contentType == "" {
		return body[0] == '{' || body[0] == '['
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// errorText renders an "error" value: strings as is, other values as their
// JSON text. Missing, null and blank values yield "".
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		text = string(raw)
	}
	return strings.TrimSpace(text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Client is a typed client for the notes API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL. A nil httpClient gets a
// default with a request timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// List fetches every note.
func (c *Client) List(ctx context.Context) ([]notes.Note, error) {
	var list []notes.Note
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return nil, ErrMalformedPayload
	}
	return list, nil
}

// Create creates a note.
func (c *Client) Create(ctx context.Context, title, content string) (*notes.Note, error) {
	var n notes.Note
	if err := c.do(ctx, http.MethodPost, "/notes", noteRequest{Title: title, Content: content}, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Update replaces a note's title and content.
func (c *Client) Update(ctx context.Context, id, title, content string) (*notes.Note, error) {
	var n notes.Note
	if err := c.do(ctx, http.MethodPut, "/notes/"+id, noteRequest{Title: title, Content: content}, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, id string) error {
	var ack struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodDelete, "/notes/"+id, nil, &ack); err != nil {
		return err
	}
	if !ack.OK {
		return ErrMalformedPayload
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return ClassifyResponse(resp.StatusCode, resp.Header.Get("Content-Type"), data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
