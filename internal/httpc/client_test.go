package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPostJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), NewClient(time.Second), srv.URL, map[string]any{"state": "TURN ON"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if got["state"] != "TURN ON" {
		t.Errorf("server received %v", got)
	}
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), Client, srv.URL, struct{}{})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway || se.Body != "relay offline" {
		t.Errorf("unexpected error %+v", se)
	}
}
