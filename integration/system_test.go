//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

func TestSystem_E2E_Items(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	var before []item
	doJSON(t, http.MethodGet, baseURL+"/api/items", nil, &before, 200)

	name := fmt.Sprintf("Webcam %d_%d", time.Now().Unix(), rand.Intn(100000))

	var created item
	doJSON(t, http.MethodPost, baseURL+"/api/items", map[string]any{
		"name":     name,
		"quantity": 5,
	}, &created, 201)
	if created.ID == "" || created.Price != 0 || created.Description != "" {
		t.Fatalf("created=%+v", created)
	}

	var updated item
	doJSON(t, http.MethodPut, baseURL+"/api/items/"+created.ID, map[string]any{
		"name":     name,
		"quantity": "20",
		"price":    "19.99",
	}, &updated, 200)
	if updated.Quantity != 20 || updated.Price != 19.99 {
		t.Fatalf("updated=%+v", updated)
	}

	var after []item
	doJSON(t, http.MethodGet, baseURL+"/api/items", nil, &after, 200)
	if len(after) < len(before)+1 {
		t.Fatalf("list len=%d before=%d", len(after), len(before))
	}

	if os.Getenv("E2E_RESTART_API") == "1" {
		restartAPIContainer(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")

		var got item
		doJSON(t, http.MethodGet, baseURL+"/api/items/"+created.ID, nil, &got, 200)
		if got != updated {
			t.Fatalf("after restart=%+v want=%+v", got, updated)
		}
	}

	doJSON(t, http.MethodDelete, baseURL+"/api/items/"+created.ID, nil, nil, 204)
	doJSON(t, http.MethodGet, baseURL+"/api/items/"+created.ID, nil, nil, 404)
	doJSON(t, http.MethodPost, baseURL+"/api/items", map[string]any{"quantity": 5}, nil, 400)
}

func TestSystem_E2E_Views(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	for _, p := range []string{"/", "/items/add"} {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+p, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != 200 {
			t.Fatalf("GET %s status=%d", p, resp.StatusCode)
		}
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
