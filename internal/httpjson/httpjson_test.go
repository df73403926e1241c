package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}

		var in map[string]int
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]int{"double": in["n"] * 2})
	}))
	defer srv.Close()

	var out map[string]int
	if err := PostJSON(context.Background(), srv.Client(), srv.URL, map[string]int{"n": 21}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}

	if out["double"] != 42 {
		t.Errorf("double = %d, want 42", out["double"])
	}
}

func TestGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := Get(context.Background(), srv.Client(), srv.URL, &struct{}{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}

	if statusErr.Status != http.StatusServiceUnavailable || statusErr.Body != "overloaded" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestGetBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	if err := Get(context.Background(), nil, srv.URL, &struct{}{}); err == nil {
		t.Error("expected decode error")
	}
}
