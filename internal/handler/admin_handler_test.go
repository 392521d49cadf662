package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
	"github.com/Bibleyou/RemoveBG-Pro/internal/remote/mocks"
	"github.com/Bibleyou/RemoveBG-Pro/internal/storage"
	"github.com/Bibleyou/RemoveBG-Pro/internal/workflow"
)

func setupAdminRouter(t *testing.T, repo storage.CallRepository) *gin.Engine {
	t.Helper()
	h := NewAdminHandler(repo, workflow.NewSessions(time.Hour, zap.NewNop()), zap.NewNop())
	router := gin.New()
	router.GET("/admin/stats", h.Stats)
	router.GET("/admin/calls", h.RecentCalls)
	return router
}

func newTestRepo(t *testing.T) storage.CallRepository {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("creating database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewCallRepository(db)
}

func TestAdminStats(t *testing.T) {
	repo := newTestRepo(t)
	for _, o := range []model.CallOutcome{model.OutcomeSuccess, model.OutcomeQuotaExceeded, model.OutcomeSuccess} {
		if err := repo.Create(context.Background(), &model.ProcessingCall{SessionID: "s", Adapter: "removebg", Outcome: o, CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("seeding ledger: %v", err)
		}
	}

	w := httptest.NewRecorder()
	setupAdminRouter(t, repo).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Total     int64            `json:"total_calls"`
		ByOutcome map[string]int64 `json:"by_outcome"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body.Total != 3 || body.ByOutcome["success"] != 2 || body.ByOutcome["quota_exceeded"] != 1 {
		t.Errorf("unexpected stats %+v", body)
	}
	if _, ok := body.ByOutcome["network_error"]; !ok {
		t.Error("every outcome should be reported, zeros included")
	}
}

func TestAdminRecentCalls(t *testing.T) {
	repo := newTestRepo(t)
	router := setupAdminRouter(t, repo)

	tests := []struct {
		query string
		want  int
	}{
		{"", http.StatusOK},
		{"?limit=5", http.StatusOK},
		{"?limit=0", http.StatusBadRequest},
		{"?limit=abc", http.StatusBadRequest},
		{"?limit=1000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/calls"+tt.query, nil))
		if w.Code != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.query, tt.want, w.Code)
		}
	}
}

func TestAdmin_LedgerDisabled(t *testing.T) {
	router := setupAdminRouter(t, nil)

	for _, path := range []string{"/admin/stats", "/admin/calls"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	p := mocks.NewMockProcessor(gomock.NewController(t))
	p.EXPECT().Name().Return("removebg")
	p.EXPECT().Ready().Return(remote.ErrUnconfigured)

	router := gin.New()
	router.GET("/healthz", NewHealthHandler(p).Healthz)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["service"] != "removebg-pro" || body["adapter"] != "removebg" || body["configured"] != false {
		t.Errorf("unexpected health body %v", body)
	}
}
