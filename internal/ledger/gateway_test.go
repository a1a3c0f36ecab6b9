package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wakefi/wakefid/internal/config"
)

func testConfig(url string) config.LedgerConfig {
	return config.LedgerConfig{
		GatewayURL:  url,
		OperatorID:  "0.0.1234",
		OperatorKey: "302e0201...",
		SinkAccount: "0.0.98",
		Timeout:     5 * time.Second,
	}
}

func TestNewGatewayClient_MissingCredentials(t *testing.T) {
	cfg := testConfig("http://localhost:7546")
	cfg.OperatorKey = ""

	if _, err := NewGatewayClient(cfg, nil); !errors.Is(err, ErrCredential) {
		t.Errorf("Expected ErrCredential for missing key, got %v", err)
	}
}

func TestCreateScheduledTransfer(t *testing.T) {
	var gotReq createScheduleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/schedules" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") == "Bearer " {
			t.Error("Expected operator key in Authorization header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("Decode request: %v", err)
		}
		json.NewEncoder(w).Encode(scheduleResponse{ScheduleID: "0.0.5555"})
	}))
	defer srv.Close()

	client, err := NewGatewayClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("NewGatewayClient: %v", err)
	}

	executeAt := time.Date(2025, 6, 10, 7, 15, 0, 0, time.UTC)
	ref, err := client.CreateScheduledTransfer(context.Background(), ScheduledTransfer{
		FromAccount: "0.0.1234",
		ToAccount:   "0.0.98",
		Amount:      2.5,
		ExecuteAt:   executeAt,
		Memo:        "wakefi alarm:test-1",
	})
	if err != nil {
		t.Fatalf("CreateScheduledTransfer: %v", err)
	}
	if ref != "0.0.5555" {
		t.Errorf("Expected schedule ref 0.0.5555, got %q", ref)
	}
	if !gotReq.WaitForExpiry {
		t.Error("Expected wait_for_expiry to be set")
	}
	if gotReq.ExecuteAt != "2025-06-10T07:15:00Z" {
		t.Errorf("Unexpected execute_at: %q", gotReq.ExecuteAt)
	}
}

func TestDeleteScheduledTransfer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		status  string
		wantErr error
	}{
		{"already executed by status string", http.StatusBadRequest, "SCHEDULE_ALREADY_EXECUTED", ErrAlreadyExecuted},
		{"already executed by conflict", http.StatusConflict, "", ErrAlreadyExecuted},
		{"already deleted", http.StatusGone, "SCHEDULE_ALREADY_DELETED", ErrAlreadyCancelled},
		{"bad signature", http.StatusBadRequest, "INVALID_SIGNATURE", ErrCredential},
		{"unauthorized", http.StatusUnauthorized, "", ErrCredential},
		{"unknown schedule", http.StatusNotFound, "", ErrNotFound},
		{"server error", http.StatusInternalServerError, "", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				json.NewEncoder(w).Encode(scheduleResponse{Status: tt.status})
			}))
			defer srv.Close()

			client, err := NewGatewayClient(testConfig(srv.URL), nil)
			if err != nil {
				t.Fatalf("NewGatewayClient: %v", err)
			}

			err = client.DeleteScheduledTransfer(context.Background(), "0.0.5555")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeleteScheduledTransfer_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client, err := NewGatewayClient(testConfig(srv.URL), nil)
	if err != nil {
		t.Fatalf("NewGatewayClient: %v", err)
	}

	if err := client.DeleteScheduledTransfer(context.Background(), "0.0.5555"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable on network failure, got %v", err)
	}
}
