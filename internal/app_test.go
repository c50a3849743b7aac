package internal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/storage"
)

func testConfig(t *testing.T, backend string) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.Store.Backend = backend
	cfg.SQLite.Path = filepath.Join(dir, "thoughts.db")
	cfg.Backup.Path = filepath.Join(dir, "backups")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{storage.BackendFS, storage.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			var logs bytes.Buffer
			svc, _, err := Open(WithConfig(testConfig(t, backend)), WithOutput(&logs))
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer svc.Store().Close()

			e, err := svc.Create(context.Background(), entryservice.CreateInput{Title: "first", Body: "<DATE>"})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if strings.Contains(e.Body, "<DATE>") {
				t.Errorf("template not expanded: %q", e.Body)
			}
		})
	}
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, _, err := Open(); err == nil {
		t.Error("expected error without config")
	}
}

func TestNewLogger_Format(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogLevel = 0

	var buf bytes.Buffer
	NewLogger(cfg, &buf).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	cfg.App.LogFormat = LogFormatJSON
	NewLogger(cfg, &buf).Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("json output = %q", buf.String())
	}
}

func TestHTTPHandler_HealthAndAPI(t *testing.T) {
	cfg := testConfig(t, storage.BackendFS)
	svc, _, err := Open(WithConfig(cfg), WithOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	defer svc.Store().Close()
	h := NewHTTPHandler(cfg, svc, nil)

	for _, path := range []string{"/health/live", "/health/ready", "/api/entries"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}
