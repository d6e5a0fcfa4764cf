package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	cases := []struct {
		name   string
		checks map[string]Pinger
		status int
		want   map[string]string
	}{
		{"all up", map[string]Pinger{"database": up, "cache": up}, http.StatusOK, map[string]string{"database": "up", "cache": "up"}},
		{"cache down", map[string]Pinger{"database": up, "cache": down}, http.StatusServiceUnavailable, map[string]string{"database": "up", "cache": "down"}},
		{"no checks", nil, http.StatusOK, map[string]string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler(tc.checks).RegisterRoutes(app)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			if err != nil {
				t.Fatalf("request error: %v", err)
			}
			defer resp.Body.Close()

			var body struct {
				Status int               `json:"status"`
				Data   map[string]string `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if resp.StatusCode != tc.status || body.Status != tc.status {
				t.Fatalf("expected %d, got %d/%d", tc.status, resp.StatusCode, body.Status)
			}
			if len(body.Data) != len(tc.want) {
				t.Fatalf("unexpected components %v", body.Data)
			}
			for k, v := range tc.want {
				if body.Data[k] != v {
					t.Fatalf("component %s: expected %s, got %s", k, v, body.Data[k])
				}
			}
		})
	}
}
