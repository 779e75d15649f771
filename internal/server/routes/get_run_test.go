package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atlas-intel/dossier/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func runContext(t *testing.T, root, runID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(runID)
	return &middleware.AppContext{Context: c, App: &middleware.AppState{ArtifactsRoot: root}}, rec
}

func TestGetRunHandler_RejectsPathTraversal(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "secret", "steps"), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, runID := range []string{"../secret", "a/b", `a\b`} {
		c, rec := runContext(t, filepath.Join(root, "runs"), runID)
		if err := GetRunHandler(c); err != nil {
			t.Fatalf("run_id %q: handler error: %v", runID, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("run_id %q: status = %d, want 400", runID, rec.Code)
		}
	}
}

func TestGetRunHandler_UnknownRun(t *testing.T) {
	c, rec := runContext(t, t.TempDir(), "run-missing")
	if err := GetRunHandler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetRunHandler_ListsStepVerdicts(t *testing.T) {
	root := t.TempDir()
	stepDir := filepath.Join(root, "run-1", "steps", "S00_intake")
	if err := os.MkdirAll(stepDir, 0o755); err != nil {
		t.Fatal(err)
	}
	verdict := `{"ok":true,"errors":[],"warnings":[]}`
	if err := os.WriteFile(filepath.Join(stepDir, "validator.json"), []byte(verdict), 0o644); err != nil {
		t.Fatal(err)
	}

	c, rec := runContext(t, root, "run-1")
	if err := GetRunHandler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "S00_intake") {
		t.Errorf("response missing step id: %s", body)
	}
}
