package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mediashelf/internal/app"
	"github.com/yourusername/mediashelf/internal/domain"
	"go.uber.org/zap"
)

// fakeEngine records calls and serves a fixed ledger
type fakeEngine struct {
	mu       sync.Mutex
	records  map[string]*domain.DownloadRecord
	started  []domain.DownloadRequest
	batched  []domain.DownloadRequest
	settings domain.Settings
	accept   bool
	startErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		records:  make(map[string]*domain.DownloadRecord),
		settings: *domain.DefaultSettings(),
		accept:   true,
	}
}

func (e *fakeEngine) add(id string, status domain.DownloadStatus) {
	rec := domain.NewDownloadRecord(id, status)
	rec.URL = "https://example.com/" + id
	e.records[id] = rec
}

func (e *fakeEngine) Start(req domain.DownloadRequest) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.startErr != nil {
		return "", e.startErr
	}
	e.started = append(e.started, req)
	id := fmt.Sprintf("d%d", len(e.started))
	e.add(id, domain.StatusStarting)
	return id, nil
}

func (e *fakeEngine) StartBatch(req domain.DownloadRequest) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batched = append(e.batched, req)
	id := fmt.Sprintf("b%d", len(e.batched))
	e.add(id, domain.StatusQueued)
	return id, nil
}

func (e *fakeEngine) GetStatus(id string) (*domain.DownloadRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (e *fakeEngine) GetAll() []*domain.DownloadRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*domain.DownloadRecord
	for _, id := range []string{"a", "b", "c"} {
		if rec, ok := e.records[id]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (e *fakeEngine) known(id string) bool {
	_, ok := e.records[id]
	return ok && e.accept
}

func (e *fakeEngine) Cancel(id string) bool { return e.known(id) }
func (e *fakeEngine) Pause(id string) bool  { return e.known(id) }
func (e *fakeEngine) Retry(id string) bool  { return e.known(id) }
func (e *fakeEngine) Remove(id string) bool { return e.known(id) }
func (e *fakeEngine) PauseAll() int         { return 3 }
func (e *fakeEngine) ResumeAll() int        { return 2 }

func (e *fakeEngine) Resume(id string) (string, bool) {
	if !e.known(id) {
		return "", false
	}
	return "new-" + id, true
}

func (e *fakeEngine) Stats() domain.DownloadStats {
	return domain.DownloadStats{Total: len(e.records), MaxBatch: e.settings.MaxConcurrentPlaylistDownloads}
}

func (e *fakeEngine) Settings() domain.Settings { return e.settings }

func (e *fakeEngine) UpdateSettings(patch domain.SettingsPatch) (*domain.Settings, error) {
	merged, err := e.settings.Merge(patch)
	if err != nil {
		return nil, err
	}
	e.settings = *merged
	return merged, nil
}

type fakeResolver struct {
	queries []app.FormatQuery
}

func (r *fakeResolver) Resolve(ctx context.Context, req *domain.DownloadRequest, q app.FormatQuery) {
	r.queries = append(r.queries, q)
	if req.FormatID == "" {
		req.FormatID = "resolved"
	}
}

func setupTestRouter(engine *fakeEngine, resolver *fakeResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	h := NewDownloadHandler(engine, resolver, log)
	s := NewSettingsHandler(engine, log)

	r := gin.New()
	d := r.Group("/downloads")
	d.POST("", h.AddDownload)
	d.POST("/batch", h.AddBatch)
	d.GET("", h.ListDownloads)
	d.GET("/stats", h.GetStats)
	d.POST("/pause-all", h.PauseAll)
	d.POST("/resume-all", h.ResumeAll)
	d.GET("/:id", h.GetDownload)
	d.DELETE("/:id", h.DeleteDownload)
	d.POST("/:id/cancel", h.CancelDownload)
	d.POST("/:id/pause", h.PauseDownload)
	d.POST("/:id/resume", h.ResumeDownload)
	d.POST("/:id/retry", h.RetryDownload)
	r.GET("/settings", s.GetSettings)
	r.PATCH("/settings", s.UpdateSettings)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddDownload(t *testing.T) {
	engine := newFakeEngine()
	resolver := &fakeResolver{}
	r := setupTestRouter(engine, resolver)

	w := doJSON(r, http.MethodPost, "/downloads",
		`{"url":"https://example.com/v/1","saveDir":"Talks","title":"My Talk","mode":"planned","height":720,"language":"en"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec domain.DownloadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "d1", rec.ID)
	assert.Equal(t, domain.StatusStarting, rec.Status)

	require.Len(t, engine.started, 1)
	got := engine.started[0]
	assert.Equal(t, "https://example.com/v/1", got.URL)
	assert.Equal(t, "Talks", got.SaveDir)
	assert.Equal(t, "My Talk", *got.Title)
	assert.Equal(t, "resolved", got.FormatID)

	require.Len(t, resolver.queries, 1)
	assert.Equal(t, app.FormatQuery{Mode: "planned", Height: 720, Language: "en", UserAgent: "test-agent"}, resolver.queries[0])
}

func TestAddDownload_Validation(t *testing.T) {
	r := setupTestRouter(newFakeEngine(), &fakeResolver{})

	for name, body := range map[string]string{
		"missing url":  `{"saveDir":"x"}`,
		"bad mode":     `{"url":"https://example.com","mode":"best"}`,
		"bad json":     `{`,
		"bad height":   `{"url":"https://example.com","height":-1}`,
		"wrong types":  `{"url":42}`,
		"empty object": `{}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/downloads", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestAddDownload_EngineError(t *testing.T) {
	engine := newFakeEngine()
	engine.startErr = fmt.Errorf("url is required")
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads", `{"url":" "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "url is required")
}

func TestAddDownload_ShuttingDown(t *testing.T) {
	engine := newFakeEngine()
	engine.startErr = domain.ErrShuttingDown
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads", `{"url":"https://example.com/v","formatId":"22"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAddBatch(t *testing.T) {
	engine := newFakeEngine()
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads/batch", `{
		"batchId": "season-1",
		"saveDir": "Show",
		"items": [
			{"url": "https://example.com/e1", "title": "Pilot"},
			{"url": "https://example.com/e2", "formatId": "22"}
		]
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AddBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "season-1", resp.BatchID)
	assert.Equal(t, []string{"b1", "b2"}, resp.IDs)

	require.Len(t, engine.batched, 2)
	for i, req := range engine.batched {
		assert.Equal(t, "season-1", *req.BatchID)
		assert.Equal(t, i+1, *req.Index)
		assert.Equal(t, "Show", req.SaveDir)
	}
	assert.Equal(t, "resolved", engine.batched[0].FormatID)
	assert.Equal(t, "22", engine.batched[1].FormatID)
}

func TestAddBatch_GeneratesBatchID(t *testing.T) {
	engine := newFakeEngine()
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads/batch", `{"items":[{"url":"https://example.com/e1"}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp AddBatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, resp.BatchID, *engine.batched[0].BatchID)

	w = doJSON(r, http.MethodPost, "/downloads/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodPost, "/downloads/batch", `{"items":[{"title":"no url"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndListDownloads(t *testing.T) {
	engine := newFakeEngine()
	engine.add("a", domain.StatusFinished)
	engine.add("b", domain.StatusError)
	engine.add("c", domain.StatusFinished)
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodGet, "/downloads/b", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)

	w = doJSON(r, http.MethodGet, "/downloads/zzz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/downloads?status=finished", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []domain.DownloadRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "c", list[1].ID)

	w = doJSON(r, http.MethodGet, "/downloads/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":3`)
}

func TestDownloadActions(t *testing.T) {
	engine := newFakeEngine()
	engine.add("a", domain.StatusDownloading)
	r := setupTestRouter(engine, &fakeResolver{})

	for _, action := range []string{"cancel", "pause", "retry"} {
		t.Run(action, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/downloads/a/"+action, "")
			assert.Equal(t, http.StatusOK, w.Code)

			w = doJSON(r, http.MethodPost, "/downloads/missing/"+action, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}

	w := doJSON(r, http.MethodPost, "/downloads/a/resume", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"new-a"`)

	w = doJSON(r, http.MethodPost, "/downloads/missing/resume", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrNoPausedRecord.Error())

	w = doJSON(r, http.MethodDelete, "/downloads/a", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodDelete, "/downloads/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadActions_WrongState(t *testing.T) {
	engine := newFakeEngine()
	engine.add("done", domain.StatusFinished)
	engine.accept = false
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads/done/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"finished"`)
}

func TestBulkActions(t *testing.T) {
	r := setupTestRouter(newFakeEngine(), &fakeResolver{})

	w := doJSON(r, http.MethodPost, "/downloads/pause-all", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/downloads/resume-all", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())
}

func TestSettings(t *testing.T) {
	engine := newFakeEngine()
	r := setupTestRouter(engine, &fakeResolver{})

	w := doJSON(r, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"maxConcurrentPlaylistDownloads":2}`, w.Body.String())

	w = doJSON(r, http.MethodPatch, "/settings", `{"maxConcurrentPlaylistDownloads":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"maxConcurrentPlaylistDownloads":4}`, w.Body.String())
	assert.Equal(t, 4, engine.settings.MaxConcurrentPlaylistDownloads)

	w = doJSON(r, http.MethodPatch, "/settings", `{"maxConcurrentPlaylistDownloads":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 4, engine.settings.MaxConcurrentPlaylistDownloads)

	w = doJSON(r, http.MethodPatch, "/settings", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
