// Package api is a thin client for the assistant's HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"memoria/internal/models"
)

// Error is returned for non-2xx responses. Its message is the server's detail
// text so it can be shown to the user as-is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client

	mu     sync.RWMutex
	apiKey string
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
	}, nil
}

// SetAPIKey sets the bearer token sent with every request. An empty key
// removes the Authorization header.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *Client) SendMessage(ctx context.Context, message string) (*models.ChatReply, error) {
	var out models.ChatReply
	if err := c.doJSON(ctx, http.MethodPost, "/chat", nil, map[string]string{"message": message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadDocument sends the file as multipart form field "file".
func (c *Client) UploadDocument(ctx context.Context, name string, content io.Reader) (*models.Document, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/documents/upload", nil, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var out []models.Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	var out models.Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) (*models.StatusMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	var out models.StatusMessage
	if err := c.doJSON(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMemories returns every memory, or only those carrying tag when set.
func (c *Client) ListMemories(ctx context.Context, tag string) ([]models.Memory, error) {
	var query url.Values
	if tag != "" {
		query = url.Values{"tag": {tag}}
	}
	var out []models.Memory
	if err := c.doJSON(ctx, http.MethodGet, "/memories", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddMemory(ctx context.Context, in models.MemoryInput) (*models.StatusMessage, error) {
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var out models.StatusMessage
	if err := c.doJSON(ctx, http.MethodPost, "/memories", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMemory(ctx context.Context, id string, in models.MemoryInput) (*models.StatusMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("memory id is required")
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var out models.StatusMessage
	if err := c.doJSON(ctx, http.MethodPut, "/memories/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMemory(ctx context.Context, id string) (*models.StatusMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("memory id is required")
	}
	var out models.StatusMessage
	if err := c.doJSON(ctx, http.MethodDelete, "/memories/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchMemories(ctx context.Context, query string) ([]models.Memory, error) {
	var out []models.Memory
	if err := c.doJSON(ctx, http.MethodGet, "/memories/search", url.Values{"query": {query}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSettings(ctx context.Context) (*models.RemoteSettings, error) {
	var out models.RemoteSettings
	if err := c.doJSON(ctx, http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, settings models.RemoteSettings) (*models.StatusMessage, error) {
	var out models.StatusMessage
	if err := c.doJSON(ctx, http.MethodPut, "/settings", nil, settings, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}
