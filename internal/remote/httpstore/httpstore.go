// Package httpstore is the client of internal/server.
package httpstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/steveyegge/kanbeads/internal/debug"
	"github.com/steveyegge/kanbeads/internal/remote"
	"github.com/steveyegge/kanbeads/internal/types"
)

type wireDocument struct {
	ID       string                 `json:"id"`
	ParentID string                 `json:"parentId,omitempty"`
	Body     sonic.NoCopyRawMessage `json:"body"`
}

// Client talks to a document server at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client. A zero timeout means 30s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK)
	return err
}

// Insert implements remote.DocumentStore.
func (c *Client) Insert(ctx context.Context, kind types.Kind, parentID string, body []byte) (remote.Document, error) {
	path := "/v1/" + string(kind) + "?parent=" + url.QueryEscape(parentID)
	resp, err := c.do(ctx, http.MethodPost, path, body, http.StatusCreated)
	if err != nil {
		return remote.Document{}, err
	}
	var doc wireDocument
	if err := sonic.ConfigStd.Unmarshal(resp, &doc); err != nil {
		return remote.Document{}, fmt.Errorf("decode insert response: %w", err)
	}
	return remote.Document{ID: doc.ID, ParentID: doc.ParentID, Body: []byte(doc.Body)}, nil
}

// Patch implements remote.DocumentStore.
func (c *Client) Patch(ctx context.Context, kind types.Kind, id string, updates map[string]any) error {
	body, err := sonic.ConfigStd.Marshal(updates)
	if err != nil {
		return fmt.Errorf("encode updates: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, "/v1/"+string(kind)+"/"+url.PathEscape(id), body, http.StatusNoContent)
	return err
}

// Remove implements remote.DocumentStore.
func (c *Client) Remove(ctx context.Context, kind types.Kind, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/"+string(kind)+"/"+url.PathEscape(id), nil, http.StatusNoContent)
	return err
}

// List implements remote.DocumentStore.
func (c *Client) List(ctx context.Context, kind types.Kind, parentID string) ([]remote.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/"+string(kind)+"?parent="+url.QueryEscape(parentID), nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var docs []wireDocument
	if err := sonic.ConfigStd.Unmarshal(resp, &docs); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}
	out := make([]remote.Document, len(docs))
	for i, d := range docs {
		out[i] = remote.Document{ID: d.ID, ParentID: d.ParentID, Body: []byte(d.Body)}
	}
	return out, nil
}

// Close implements remote.DocumentStore.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	debug.Logf("httpstore: %s %s\n", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, remote.Transient(fmt.Errorf("%s %s: %w", method, path, err))
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, remote.Transient(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode == want {
		return data, nil
	}
	msg := serverMessage(data)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %s: %w", method, path, msg, remote.ErrNotFound)
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, remote.Transient(fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, msg))
	default:
		return nil, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, msg)
	}
}

// serverMessage extracts echo's {"message": ...} error body.
func serverMessage(data []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(data))
}
