package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/api/middleware"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/domain"
	"github.com/jafarshop/relister/internal/repository"
	"github.com/jafarshop/relister/internal/service"
	"github.com/jafarshop/relister/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUploader struct {
	res     *service.UploadResult
	err     error
	lastReq service.UploadRequest
}

func (f *fakeUploader) Upload(ctx context.Context, req service.UploadRequest) (*service.UploadResult, error) {
	f.lastReq = req
	return f.res, f.err
}

func (f *fakeUploader) Preview(ctx context.Context, req service.UploadRequest) (*service.PreviewResult, error) {
	f.lastReq = req
	if f.err != nil {
		return &service.PreviewResult{URL: req.URL, Reason: errors.Reason(f.err)}, f.err
	}
	return &service.PreviewResult{OK: true, URL: req.URL, Computed: &service.Computed{FinalPrice: 12340}}, nil
}

type fakeUploadRepo struct {
	records    []*domain.UploadRecord
	lastStatus domain.RunStatus
}

func (f *fakeUploadRepo) Create(ctx context.Context, r *domain.UploadRecord) error { return nil }

func (f *fakeUploadRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.UploadRecord, error) {
	return nil, &errors.ErrNotFound{Resource: "upload", ID: id.String()}
}

func (f *fakeUploadRepo) ListRecent(ctx context.Context, limit, offset int) ([]*domain.UploadRecord, error) {
	return f.records, nil
}

func (f *fakeUploadRepo) ListByStatus(ctx context.Context, status domain.RunStatus, limit, offset int) ([]*domain.UploadRecord, error) {
	f.lastStatus = status
	return f.records, nil
}

func (f *fakeUploadRepo) UpdateApprovalStatus(ctx context.Context, id uuid.UUID, status domain.RunStatus, approvalStatus string) error {
	return nil
}

func newTestRouter(t *testing.T, cfg *config.Config, deps Deps) *gin.Engine {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{Environment: "test"}
	}
	return NewRouter(cfg, deps, zap.NewNop())
}

func doJSON(r http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadStatusMapping(t *testing.T) {
	id := int64(777)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"busy", errors.ErrBusy, http.StatusConflict},
		{"preflight", &errors.ErrPreflight{Reason: errors.ReasonMissingCredentials}, http.StatusUnprocessableEntity},
		{"unsupported", &errors.ErrPreflight{Reason: errors.ReasonUnsupportedSource}, http.StatusUnprocessableEntity},
		{"approval rejected", &errors.ErrApprovalRejected{SellerProductID: 777, Status: "승인반려"}, http.StatusUnprocessableEntity},
		{"ip", &errors.ErrPreflight{Reason: errors.ReasonIPNotAllowed}, http.StatusForbidden},
		{"rejected", &errors.ErrDestinationRejected{Operation: "create", Status: 400, Body: "{}"}, http.StatusBadGateway},
		{"source", &errors.ErrSourceUnreachable{URL: "u", Err: context.DeadlineExceeded}, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{
				res: &service.UploadResult{OK: tt.err == nil, Reason: errors.Reason(tt.err),
					Create: &service.CreateSummary{Status: 200, SellerProductID: &id}},
				err: tt.err,
			}
			r := newTestRouter(t, nil, Deps{Uploader: up})
			w := doJSON(r, http.MethodPost, "/v1/uploads",
				`{"url":"https://domeggook.com/123","settings":{"marginRate":"0.1"},"categoryCode":62634}`, nil)
			assert.Equal(t, tt.want, w.Code)

			var body service.UploadResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.err == nil, body.OK)
			assert.Equal(t, &id, body.Create.SellerProductID)
			assert.Equal(t, int64(62634), up.lastReq.CategoryCode)
			assert.Equal(t, config.Num(0.1), up.lastReq.Settings.MarginRate)
		})
	}
}

func TestUpload_RequiresURL(t *testing.T) {
	r := newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}})
	w := doJSON(r, http.MethodPost, "/v1/uploads", `{"settings":{}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview(t *testing.T) {
	r := newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}})
	w := doJSON(r, http.MethodPost, "/v1/previews", `{"url":"https://domeggook.com/1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"finalPrice":12340`)

	r = newTestRouter(t, nil, Deps{Uploader: &fakeUploader{err: &errors.ErrPreflight{Reason: errors.ReasonUnsupportedSource}}})
	w = doJSON(r, http.MethodPost, "/v1/previews", `{"url":"https://example.com"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListUploads(t *testing.T) {
	reason := "approval_pending"
	repo := &fakeUploadRepo{records: []*domain.UploadRecord{{
		ID: uuid.New(), SourceURL: "https://domeggook.com/1", Status: domain.RunStatusSubmitted,
		Reason: &reason, FinalPrice: 12340, CreatedAt: time.Now(),
	}}}
	r := newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}, Repos: &repository.Repositories{Upload: repo}})

	w := doJSON(r, http.MethodGet, "/v1/uploads?status=submitted&limit=10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.RunStatusSubmitted, repo.lastStatus)
	var body struct {
		Uploads []listedUpload `json:"uploads"`
		Limit   int              `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Uploads, 1)
	assert.Equal(t, "approval_pending", body.Uploads[0].Reason)
	assert.Equal(t, 10, body.Limit)

	w = doJSON(r, http.MethodGet, "/v1/uploads?status=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}})
	w = doJSON(r, http.MethodGet, "/v1/uploads", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type listedUpload struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
}

func TestAPIKeyMiddleware(t *testing.T) {
	hash, err := middleware.HashAPIKey("secret-key")
	require.NoError(t, err)
	cfg := &config.Config{API: config.APIConfig{KeyHash: hash}}
	r := newTestRouter(t, cfg, Deps{Uploader: &fakeUploader{}})
	body := `{"url":"https://domeggook.com/1"}`

	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodPost, "/v1/previews", body, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(r, http.MethodPost, "/v1/previews", body, http.Header{"Authorization": {"Bearer wrong"}}).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(r, http.MethodPost, "/v1/previews", body, http.Header{"Authorization": {"Token secret-key"}}).Code)
	assert.Equal(t, http.StatusOK,
		doJSON(r, http.MethodPost, "/v1/previews", body, http.Header{"Authorization": {"Bearer secret-key"}}).Code)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/health", "", nil).Code, "health stays open")
}

func TestStaticImagesAndMetrics(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc_00.jpg"), []byte{0xFF, 0xD8, 0xFF}, 0o644))
	r := newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}, ImageDir: dir})

	w := doJSON(r, http.MethodGet, "/images/abc_00.jpg", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, w.Body.Bytes())

	w = doJSON(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relister_http_duration_seconds")
}

func TestRecoveryReturns500(t *testing.T) {
	r := newTestRouter(t, nil, Deps{Uploader: &fakeUploader{}})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	w := doJSON(r, http.MethodGet, "/panic", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")
}
