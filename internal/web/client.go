package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// Draft is an item as typed into a form. Numbers stay strings; the API parses them.
type Draft struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price"`
}

var ErrNotFound = errors.New("item no encontrado")

// StatusError is any non-2xx answer from the API. Message carries the
// server's "message" field when there was one. A 404 matches ErrNotFound.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("error HTTP, estado: %d", e.Status)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "error de red: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

type ItemsClient struct {
	BaseURL string
	Client  *http.Client
}

func NewItemsClient(baseURL string, timeout time.Duration) *ItemsClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &ItemsClient{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *ItemsClient) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/api/items", nil, http.StatusOK, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *ItemsClient) Get(ctx context.Context, id string) (Item, error) {
	var it Item
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, http.StatusOK, &it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (c *ItemsClient) Create(ctx context.Context, d Draft) (Item, error) {
	var it Item
	if err := c.do(ctx, http.MethodPost, "/api/items", d, http.StatusCreated, &it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func (c *ItemsClient) Update(ctx context.Context, id string, d Draft) (Item, error) {
	var it Item
	if err := c.do(ctx, http.MethodPut, itemPath(id), d, http.StatusOK, &it); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Delete succeeds only on 204.
func (c *ItemsClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, http.StatusNoContent, nil)
}

func (c *ItemsClient) Ready(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, http.StatusOK, nil)
}

func itemPath(id string) string {
	return "/api/items/" + url.PathEscape(id)
}

func (c *ItemsClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := chimw.GetReqID(ctx); id != "" {
		req.Header.Set(chimw.RequestIDHeader, id)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return readStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	return &StatusError{Status: resp.StatusCode, Message: body.Message}
}
