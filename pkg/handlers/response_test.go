package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeanclaudder2024/document-processor-sub001/pkg/middleware"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		requestID  string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad identifier", "", http.StatusBadRequest, "invalid_template_id", "template id must be a UUID"},
		{"unknown template", "req-42", http.StatusNotFound, "template_not_found", "template not found"},
		{"store failure", "req-43", http.StatusInternalServerError, "resolve_failed", "failed to resolve placeholders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if tt.requestID != "" {
				w.Header().Set(middleware.RequestIDHeader, tt.requestID)
			}

			if err := ErrorResponse(w, tt.statusCode, tt.errorCode, tt.message); err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", resp.StatusCode, tt.statusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body ErrorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Error != tt.errorCode {
				t.Errorf("error = %q, want %q", body.Error, tt.errorCode)
			}
			if body.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Message, tt.message)
			}
			if body.RequestID != tt.requestID {
				t.Errorf("request_id = %q, want %q", body.RequestID, tt.requestID)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: map[string]int{"placeholders": 2}})
	if err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status code = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if !body.Success || body.Data["placeholders"] != 2 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestWriteJSON_UnencodableData(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusOK, make(chan int)); err == nil {
		t.Error("expected error for unencodable data, got nil")
	}
}
