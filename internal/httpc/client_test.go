package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			var in map[string]interface{}
			json.NewDecoder(r.Body).Decode(&in)
			in["method"] = r.Method
			json.NewEncoder(w).Encode(in)
		case "/missing":
			w.WriteHeader(404)
			w.Write([]byte(`{"error":"no such preset"}`))
		default:
			w.WriteHeader(500)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	var out map[string]interface{}
	if err := PutJSON(ctx, srv.URL+"/echo", map[string]int{"grid_size": 9}, &out); err != nil {
		t.Fatalf("PutJSON failed: %v", err)
	}
	if out["method"] != "PUT" || out["grid_size"] != 9.0 {
		t.Errorf("Expected echoed PUT body, got %v", out)
	}

	err := PostJSON(ctx, srv.URL+"/missing", nil, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if se.Code != 404 || se.Message != "no such preset" {
		t.Errorf("Expected 404 no such preset, got %d %q", se.Code, se.Message)
	}

	err = GetJSON(ctx, srv.URL+"/boom", &out)
	if !errors.As(err, &se) || se.Code != 500 {
		t.Errorf("Expected 500 StatusError, got %v", err)
	}
}
