package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestPushEventJSON_LabelsAndTimestamp(t *testing.T) {
	var got PushRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", srv.Client())
	raw := []byte(`{"id":"1","eventType":"device_offline","source":"device monitor","createdAt":"2025-03-01T10:00:00Z"}`)
	if err := c.PushEventJSON(context.Background(), raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if path != "/loki/api/v1/push" {
		t.Errorf("path = %q", path)
	}
	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	s := got.Streams[0]
	if s.Stream["job"] != "queyk" || s.Stream["event_type"] != "device_offline" || s.Stream["source"] != "device_monitor" {
		t.Errorf("labels = %v", s.Stream)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).UnixNano()
	if s.Values[0][0] != strconv.FormatInt(want, 10) {
		t.Errorf("timestamp = %s, want %d", s.Values[0][0], want)
	}
	if s.Values[0][1] != string(raw) {
		t.Errorf("line = %s", s.Values[0][1])
	}
}

func TestPushEventJSON_InvalidJSONUsesNow(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClient(srv.URL, srv.Client())
	c.now = func() time.Time { return fixed }
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	s := got.Streams[0]
	if len(s.Stream) != 1 || s.Stream["job"] != "queyk" {
		t.Errorf("labels = %v, want only job", s.Stream)
	}
	if s.Values[0][1] != "not json" {
		t.Errorf("line = %q", s.Values[0][1])
	}
}

func TestPush_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Push(context.Background(), time.Now(), "x", nil)
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v, want 400 status error", err)
	}
}

func TestPush_EmptyBaseURL(t *testing.T) {
	if err := NewClient("", nil).Push(context.Background(), time.Now(), "x", nil); err == nil {
		t.Error("expected error for empty base URL")
	}
}
