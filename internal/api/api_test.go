package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/thoughts/internal/entryservice"
	"github.com/starford/thoughts/internal/sse"
	"github.com/starford/thoughts/internal/testutil"
)

// testEnv sets up a temp entries directory, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*entryservice.Service, http.Handler, string) {
	t.Helper()
	store := testutil.TestFS(t)
	svc := entryservice.NewService(store, testutil.Logger())
	backupDir := filepath.Join(t.TempDir(), "backups")
	router := NewRouter(svc, authToken != "", authToken, backupDir, nil)
	return svc, router, backupDir
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) EntryDetail {
	t.Helper()
	var d EntryDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
	return d
}

func TestCreateAndGetEntry(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/entries", map[string]any{"title": "hello", "body": "world", "tags": []string{"a"}})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decodeDetail(t, w)
	if created.ID != "hello.md" {
		t.Errorf("id = %q", created.ID)
	}
	if got := w.Header().Get("ETag"); got != `"`+created.Fingerprint+`"` {
		t.Errorf("etag = %q", got)
	}

	w = do(t, router, http.MethodGet, "/entries/hello.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := decodeDetail(t, w)
	if got.Title != "hello" || got.Body != "world" {
		t.Errorf("entry = %+v", got.Entry)
	}
}

func TestCreateDuplicate(t *testing.T) {
	_, router, _ := testEnv(t, "")
	body := map[string]any{"title": "dup"}
	if w := do(t, router, http.MethodPost, "/entries", body); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/entries", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodPost, "/entries", map[string]any{"title": "  "}); w.Code != http.StatusBadRequest {
		t.Errorf("blank title = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/entries", map[string]any{"title": "a/b"}); w.Code != http.StatusBadRequest {
		t.Errorf("slash title = %d, want 400", w.Code)
	}
}

func TestUpdateWithIfMatch(t *testing.T) {
	_, router, _ := testEnv(t, "")
	created := decodeDetail(t, do(t, router, http.MethodPost, "/entries", map[string]any{"title": "lock", "body": "v1"}))

	w := do(t, router, http.MethodPut, "/entries/lock.md", map[string]any{"body": "v2"}, "If-Match", `"`+created.Fingerprint+`"`)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	updated := decodeDetail(t, w)
	if updated.Body != "v2" {
		t.Errorf("body = %q", updated.Body)
	}

	// The old fingerprint is now stale.
	w = do(t, router, http.MethodPut, "/entries/lock.md", map[string]any{"body": "v3"}, "If-Match", created.Fingerprint)
	if w.Code != http.StatusConflict {
		t.Errorf("stale update = %d, want 409", w.Code)
	}
}

func TestUpdateRenameChangesID(t *testing.T) {
	_, router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "old"})

	w := do(t, router, http.MethodPut, "/entries/old.md", map[string]any{"title": "new"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", w.Code, w.Body.String())
	}
	if d := decodeDetail(t, w); d.ID != "new.md" {
		t.Errorf("id = %q, want new.md", d.ID)
	}
	if w := do(t, router, http.MethodGet, "/entries/old.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("old id = %d, want 404", w.Code)
	}
}

func TestUpdateEntry_NotFound(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodPut, "/entries/ghost.md", map[string]any{"body": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("missing entry = %d, want 404", w.Code)
	}
}

func TestToggleFavorite(t *testing.T) {
	_, router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "star"})

	w := do(t, router, http.MethodPost, "/entries/star.md/favorite", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("favorite status = %d", w.Code)
	}
	if !decodeDetail(t, w).Favorite {
		t.Error("favorite not set")
	}
	if w := do(t, router, http.MethodPost, "/entries/star.md/unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown action = %d, want 404", w.Code)
	}
}

func TestDeleteEntry(t *testing.T) {
	_, router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "gone"})

	if w := do(t, router, http.MethodDelete, "/entries/gone.md", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/entries/gone.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestListEntriesWithQuery(t *testing.T) {
	_, router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "alpha", "favorite": true})
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "beta"})

	w := do(t, router, http.MethodGet, "/entries", nil)
	var all EntryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &all)
	if all.Total != 2 {
		t.Errorf("total = %d, want 2", all.Total)
	}

	w = do(t, router, http.MethodGet, "/entries?q=favorite:+true", nil)
	var favs EntryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &favs)
	if favs.Total != 1 || favs.Entries[0].Title != "alpha" {
		t.Errorf("favorites = %+v", favs)
	}
}

func TestBackupEndpoint(t *testing.T) {
	_, router, backupDir := testEnv(t, "")
	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "saved"})

	w := do(t, router, http.MethodPost, "/backups", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("backup = %d, body = %s", w.Code, w.Body.String())
	}
	var resp BackupResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if filepath.Dir(resp.Path) != backupDir {
		t.Errorf("backup path = %q, want under %q", resp.Path, backupDir)
	}
	if _, err := os.Stat(filepath.Join(resp.Path, "saved.md")); err != nil {
		t.Errorf("backup missing entry: %v", err)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	w := do(t, router, http.MethodPost, "/entries", map[string]any{"title": "auth"}, "Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/entries", nil, "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestEventsRequireAuth(t *testing.T) {
	store := testutil.TestFS(t)
	svc := entryservice.NewService(store, testutil.Logger())
	broker := sse.NewBroker(0)
	defer broker.Close()
	router := NewRouter(svc, true, "secret123", t.TempDir(), broker)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed events = %d, want 401", w.Code)
	}
}

func TestMutationsPublishEvents(t *testing.T) {
	store := testutil.TestFS(t)
	svc := entryservice.NewService(store, testutil.Logger())
	broker := sse.NewBroker(0)
	defer broker.Close()
	router := NewRouter(svc, false, "", t.TempDir(), broker)

	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	do(t, router, http.MethodPost, "/entries", map[string]any{"title": "live"})
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: entry.created") {
			t.Errorf("unexpected event %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}
