package mailer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSend_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/send" {
			t.Fatalf("path = %s, want /v1/send", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing api key header")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if !client.Send(ctx, "user@example.com", "subject", "tpl-1", nil) {
		t.Fatalf("Send = false, want true")
	}
}

func TestSend_ServerErrorRetriesThenFalse(t *testing.T) {
	var calls int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if client.Send(ctx, "user@example.com", "subject", "tpl-1", nil) {
		t.Fatalf("Send = true, want false on persistent 500")
	}
	if atomic.LoadInt64(&calls) < 2 {
		t.Fatalf("calls = %d, want at least one retry", calls)
	}
}

func TestSend_ClientErrorNoRetry(t *testing.T) {
	var calls int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key")

	if client.Send(context.Background(), "user@example.com", "subject", "tpl-1", nil) {
		t.Fatalf("Send = true, want false on 422")
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on client error)", calls)
	}
}

func TestSend_Unconfigured(t *testing.T) {
	client := NewClient("", "")

	if client.Send(context.Background(), "user@example.com", "subject", "tpl-1", nil) {
		t.Fatalf("unconfigured client must report false")
	}
}

func TestSend_EmptyRecipient(t *testing.T) {
	client := NewClient("http://mailer", "key")

	if client.Send(context.Background(), "", "subject", "tpl-1", nil) {
		t.Fatalf("empty recipient must report false")
	}
}
