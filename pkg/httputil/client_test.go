package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("apikey"); got != "secret" {
			t.Errorf("apikey header = %q", got)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	c := NewClient(map[string]string{"apikey": "secret"})
	var out map[string]string
	if err := c.PostJSON(context.Background(), srv.URL, map[string]string{"q": "hi"}, &out); err != nil {
		t.Fatalf("PostJSON() error: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("PostJSON() decoded %v", out)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(nil, WithRetry(3, time.Millisecond))
	var out []any
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
		calls  int32
	}{
		{status: http.StatusNotFound, want: ErrNotFound, calls: 1},
		{status: http.StatusForbidden, want: ErrUnauthorized, calls: 1},
		{status: http.StatusBadRequest, want: ErrNetwork, calls: 1},
		{status: http.StatusServiceUnavailable, want: ErrNetwork, calls: 2},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(nil, WithRetry(2, time.Millisecond))
			err := c.GetJSON(context.Background(), srv.URL, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("GetJSON() error = %v, want %v", err, tt.want)
			}
			if calls.Load() != tt.calls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.calls)
			}
		})
	}
}
