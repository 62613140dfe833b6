package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/wordvec/internal/models"
)

// Client calls a running wordvec server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code        int
	Message     string
	Suggestions []string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

// Similar fetches the nearest neighbors of word. count <= 0 uses the server default.
func (c *Client) Similar(ctx context.Context, word string, count int) (*models.SimilarResponse, error) {
	path := "/get_similar/" + url.PathEscape(word)
	if count > 0 {
		path += "?count=" + strconv.Itoa(count)
	}
	var out models.SimilarResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SimilarByVector fetches the nearest neighbors of a raw vector.
func (c *Client) SimilarByVector(ctx context.Context, vec []float32, count int) (*models.SimilarResponse, error) {
	var out models.SimilarResponse
	if err := c.do(ctx, http.MethodPost, "/get_similar", &models.SimilarRequest{Vector: vec, Count: count}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vector fetches the stored vector of word.
func (c *Client) Vector(ctx context.Context, word string) (*models.VectorResponse, error) {
	var out models.VectorResponse
	if err := c.do(ctx, http.MethodGet, "/get_vector/"+url.PathEscape(word), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Suggest fetches vocabulary words close in spelling to word.
func (c *Client) Suggest(ctx context.Context, word string, count int) (*models.SuggestResponse, error) {
	path := "/suggest/" + url.PathEscape(word)
	if count > 0 {
		path += "?count=" + strconv.Itoa(count)
	}
	var out models.SuggestResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches server status.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var e models.ErrorResponse
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: e.Error, Suggestions: e.Suggestions}
		}
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
