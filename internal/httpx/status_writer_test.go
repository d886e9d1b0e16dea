package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusWriterDefaultsToOK(t *testing.T) {
	sw := &StatusWriter{ResponseWriter: httptest.NewRecorder()}
	if sw.Code() != http.StatusOK {
		t.Fatalf("expected 200 before any write, got %d", sw.Code())
	}
	if _, err := sw.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if sw.Status != http.StatusOK || sw.Bytes != 5 {
		t.Fatalf("expected status 200 and 5 bytes, got %d/%d", sw.Status, sw.Bytes)
	}
}

func TestStatusWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &StatusWriter{ResponseWriter: rec}
	sw.WriteHeader(http.StatusServiceUnavailable)
	sw.WriteHeader(http.StatusOK)
	if sw.Code() != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", sw.Code())
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]int{"delay": 700})
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if got := rec.Body.String(); got != "{\"delay\":700}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
