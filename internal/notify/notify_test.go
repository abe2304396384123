package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

type captured struct {
	path, title, priority, tags, auth, body string
}

func newNtfyServer(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = captured{
			path:     r.URL.Path,
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
			auth:     r.Header.Get("Authorization"),
			body:     string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_ScanCompleted(t *testing.T) {
	var got captured
	server := newNtfyServer(t, http.StatusOK, &got)

	c := NewClient(&Config{Enabled: true, Server: server.URL + "/", Topic: "scans", Priority: "default", Tags: "chart", Token: "tk"}, zap.NewNop())
	req := scan.Request{Sector: "Energy", NumTickers: 20, Lookback: 30, MaxDTE: 45}
	sum := scan.Summary{Total: 20, OK: 17, Unavailable: 2, Fault: 1, Duration: 61 * time.Second}

	if err := c.ScanCompleted(context.Background(), "abc", req, sum); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.path != "/scans" {
		t.Errorf("expected topic path, got %q", got.path)
	}
	if got.title != "Scan Complete: 17/20 tickers" || got.priority != "default" {
		t.Errorf("unexpected headers %+v", got)
	}
	if got.tags != "chart,white_check_mark" || got.auth != "Bearer tk" {
		t.Errorf("unexpected tags or auth %+v", got)
	}
	for _, want := range []string{"Task: abc", "Sector: Energy", "Fault: 1", "Duration: 1m1s"} {
		if !strings.Contains(got.body, want) {
			t.Errorf("body missing %q:\n%s", want, got.body)
		}
	}
}

func TestClient_ScanFailed(t *testing.T) {
	var got captured
	server := newNtfyServer(t, http.StatusOK, &got)

	c := NewClient(&Config{Enabled: true, Server: server.URL, Topic: "scans", Priority: "low", Tags: "chart"}, zap.NewNop())
	if err := c.ScanFailed(context.Background(), "abc", scan.Request{}, "universe down"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.priority != "high" || got.auth != "" {
		t.Errorf("expected high priority without auth, got %+v", got)
	}
	if !strings.Contains(got.body, "Sector: all") || !strings.Contains(got.body, "Error: universe down") {
		t.Errorf("unexpected body:\n%s", got.body)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	var got captured
	server := newNtfyServer(t, http.StatusForbidden, &got)

	c := NewClient(&Config{Enabled: true, Server: server.URL, Topic: "scans", Priority: "default"}, zap.NewNop())
	if err := c.ScanFailed(context.Background(), "abc", scan.Request{}, "x"); err == nil {
		t.Error("expected error for 403")
	}
}

func TestNew_Disabled(t *testing.T) {
	if _, ok := New(&Config{}, zap.NewNop()).(NoopNotifier); !ok {
		t.Error("expected noop notifier when disabled")
	}
	if _, ok := New(&Config{Enabled: true, Topic: "t"}, zap.NewNop()).(*Client); !ok {
		t.Error("expected client when enabled")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"valid", Config{Enabled: true, Topic: "t", Priority: "high"}, false},
		{"missing topic", Config{Enabled: true, Priority: "high"}, true},
		{"bad priority", Config{Enabled: true, Topic: "t", Priority: "loud"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
