package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClient_CreateCallSuccess(t *testing.T) {
	var gotAuth string
	var gotBody CreateCallRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/call" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"call-1","status":"queued","assistantId":"asst-1","extra":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.CreateCall(context.Background(), "key-1", CreateCallRequest{Customer: Customer{Number: "+60123456789"}})
	if err != nil {
		t.Fatalf("create call: %v", err)
	}
	if gotAuth != "Bearer key-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.Customer.Number != "+60123456789" {
		t.Fatalf("unexpected body %+v", gotBody.Customer)
	}
	if resp.ID != "call-1" || resp.Status != "queued" || resp.AssistantID != "asst-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(string(resp.Raw), `"extra":true`) {
		t.Fatalf("raw response not kept: %s", resp.Raw)
	}
}

func TestClient_CreateCallAPIErrorTruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.CreateCall(context.Background(), "key", CreateCallRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || len(apiErr.Body) != 200 {
		t.Fatalf("unexpected api error %d len=%d", apiErr.StatusCode, len(apiErr.Body))
	}
	if !strings.HasPrefix(apiErr.Error(), "VAPI API Error [400]: ") {
		t.Fatalf("unexpected message %q", apiErr.Error())
	}
}

func TestClient_RequiresAPIKey(t *testing.T) {
	c := NewClient("", 0)
	if _, err := c.CreateCall(context.Background(), " ", CreateCallRequest{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestMemoryCredentialStore_OwnerOfAssistant(t *testing.T) {
	s := NewMemoryCredentialStore(Credential{UserID: "u1", APIKey: "k", AssistantID: "a1"})
	owner, err := s.OwnerOfAssistant(context.Background(), "a1")
	if err != nil || owner != "u1" {
		t.Fatalf("expected u1, got %q (%v)", owner, err)
	}
	if _, err := s.OwnerOfAssistant(context.Background(), "nope"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	if (Credential{APIKey: "k", Status: "inactive"}).Usable() {
		t.Fatalf("inactive credential must not be usable")
	}
}
