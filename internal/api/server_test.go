package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/reelcat/reelcat/internal/catalog"
	"github.com/reelcat/reelcat/internal/importer"
	"github.com/reelcat/reelcat/internal/listingcache"
	"github.com/reelcat/reelcat/internal/scanner"
	"github.com/reelcat/reelcat/internal/testutil"
	"github.com/reelcat/reelcat/internal/websocket"
)

func newTestServer(t *testing.T) (*Server, func()) {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	store := catalog.NewStore(tdb.Conn, tdb.Logger)
	cache := listingcache.New(store, tdb.Logger)

	hub := websocket.NewHub(tdb.Logger)
	go hub.Run()

	orch := importer.NewOrchestrator(store, cache, scanner.LocalFS{}, nil, importer.Options{}, tdb.Logger)
	svc := importer.NewService(orch, tdb.Logger)

	return NewServer(store, svc, hub, tdb.Logger), tdb.Close
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthCheck(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := doRequest(s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
}

func TestServer_ImportStatusBeforeAnyRun(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := doRequest(s, http.MethodGet, "/api/v1/imports/current", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /imports/current = %d, want 404 before any run", rec.Code)
	}
}

func TestServer_StartImportValidation(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := doRequest(s, http.MethodPost, "/api/v1/imports", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /imports without rootLocation = %d, want 400", rec.Code)
	}
}

func TestServer_ImportFlow(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	// A real movie directory on disk, imported through the full stack.
	root := t.TempDir()
	movieDir := filepath.Join(root, "Heat (1995)")
	if err := os.MkdirAll(movieDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(movieDir, "Heat (1995).mkv"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	nfoDoc := `<movie><title>Heat</title><year>1995</year></movie>`
	if err := os.WriteFile(filepath.Join(movieDir, "Heat (1995).nfo"), []byte(nfoDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	body := `{"rootLocation":` + jsonString(movieDir) + `}`
	rec := doRequest(s, http.MethodPost, "/api/v1/imports", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /imports = %d, body %s", rec.Code, rec.Body.String())
	}

	status := waitForImport(t, s)
	if status["state"] != "completed" {
		t.Fatalf("state = %v, want completed (status %v)", status["state"], status)
	}

	// The imported list shows up at the catalog root.
	rec = doRequest(s, http.MethodGet, "/api/v1/lists", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /lists = %d", rec.Code)
	}
	var lists []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &lists); err != nil {
		t.Fatalf("lists response not JSON: %v", err)
	}
	if len(lists) != 1 || lists[0]["name"] != "Heat (1995)" {
		t.Fatalf("lists = %v, want the imported movie list", lists)
	}

	listID := int64(lists[0]["id"].(float64))
	rec = doRequest(s, http.MethodGet, "/api/v1/lists/"+strconv.FormatInt(listID, 10)+"/items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /lists/%d/items = %d", listID, rec.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("items response not JSON: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %v, want one imported movie", items)
	}
}

func waitForImport(t *testing.T, s *Server) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(s, http.MethodGet, "/api/v1/imports/current", "")
		if rec.Code == http.StatusOK {
			var status map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("status response not JSON: %v", err)
			}
			state, _ := status["state"].(string)
			switch state {
			case "completed", "failed", "cancelled":
				return status
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("import did not finish in time")
	return nil
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
