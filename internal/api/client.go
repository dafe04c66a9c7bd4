package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// APIError carries the HTTP status and error payload of a failed request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned HTTP %d", e.StatusCode)
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon at address (host:port or URL).
func NewClient(address, token string) *Client {
	base := strings.TrimSpace(address)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Status fetches daemon health and dependency availability.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// Inspect analyzes source without rendering it.
func (c *Client) Inspect(ctx context.Context, source string) (InspectResponse, error) {
	var resp InspectResponse
	err := c.do(ctx, http.MethodPost, "/api/inspect", InspectRequest{Source: source}, &resp)
	return resp, err
}

// StartRender submits a render and returns its id.
func (c *Client) StartRender(ctx context.Context, req RenderRequest) (RenderAccepted, error) {
	var accepted RenderAccepted
	err := c.do(ctx, http.MethodPost, "/api/render", req, &accepted)
	return accepted, err
}

// Render fetches the stored record for a finished render.
func (c *Client) Render(ctx context.Context, id string) (HistoryRecord, error) {
	var record HistoryRecord
	err := c.do(ctx, http.MethodGet, "/api/render/"+url.PathEscape(id), nil, &record)
	return record, err
}

// StopRender cancels an in-flight render.
func (c *Client) StopRender(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/render/"+url.PathEscape(id)+"/stop", nil, nil)
}

// History lists recent renders, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryRecord, error) {
	path := "/api/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp HistoryListResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp.Records, err
}

// DownloadArtifact saves the rendered video to destPath.
func (c *Client) DownloadArtifact(ctx context.Context, id, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/render/"+url.PathEscape(id)+"/artifact", nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// Downloads can outlast the default request timeout.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var payload ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return file.Close()
}

// StreamEvents follows the progress websocket for a render, invoking fn for
// every frame until the final done frame arrives or ctx is cancelled.
func (c *Client) StreamEvents(ctx context.Context, id string, fn func(ProgressEvent)) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) +
		"/api/render/" + url.PathEscape(id) + "/events"

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("open event stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var event ProgressEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read event stream: %w", err)
		}
		fn(event)
		if event.Done {
			return nil
		}
	}
}
