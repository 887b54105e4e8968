package httpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Status string `json:"status"`
	}
	if err := GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "ok" {
		t.Errorf("status = %q", out.Status)
	}
}

func TestPutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		var in map[string]float64
		json.NewDecoder(r.Body).Decode(&in)
		json.NewEncoder(w).Encode(map[string]float64{"echo": in["density"]})
	}))
	defer srv.Close()

	var out map[string]float64
	if err := PutJSON(context.Background(), srv.URL, map[string]float64{"density": 0.4}, &out); err != nil {
		t.Fatal(err)
	}
	if out["echo"] != 0.4 {
		t.Errorf("echo = %v", out["echo"])
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", 422, `{"error":"position out of bounds"}`, "position out of bounds"},
		{"plain text", 500, "boom", "boom"},
		{"empty body", 404, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := GetJSON(context.Background(), srv.URL, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
			if apiErr.IsNotFound() != (tt.status == 404) {
				t.Error("IsNotFound mismatch")
			}
		})
	}
}
