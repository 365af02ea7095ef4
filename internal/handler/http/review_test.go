package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/einarr2o12/review-service/internal/domain"
	"github.com/einarr2o12/review-service/internal/event"
	"github.com/einarr2o12/review-service/internal/service"
	apperrors "github.com/einarr2o12/review-service/pkg/errors"
	"github.com/einarr2o12/review-service/pkg/health"
	"github.com/einarr2o12/review-service/pkg/middleware"
)

// --- Mock ReviewRepository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) List(ctx context.Context) ([]domain.Review, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByProductID(ctx context.Context, productID int64) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id int64) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Create(ctx context.Context, in *domain.CreateReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockReviewRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock product.Validator ---

type mockProductValidator struct {
	mock.Mock
}

func (m *mockProductValidator) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testEnv struct {
	repo     *mockReviewRepository
	products *mockProductValidator
	router   http.Handler
}

func setupRouter(t *testing.T) testEnv {
	t.Helper()
	repo := new(mockReviewRepository)
	products := new(mockProductValidator)
	svc := service.NewReviewService(repo, products, event.NoopProducer{}, testLogger())
	router := NewRouter(svc, health.NewHandler(), testLogger(), []string{"127.0.0.0/8"}, nil)
	return testEnv{repo: repo, products: products, router: router}
}

func (e testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func strPtr(s string) *string { return &s }

func sampleReview() *domain.Review {
	created := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	return &domain.Review{
		ID:             1,
		ProductID:      10,
		Rating:         5,
		Comment:        strPtr("excellent"),
		CreatedAt:      &created,
		ReviewMetadata: json.RawMessage(`{"verified":true}`),
	}
}

// ============================================================================
// GET /api/reviews
// ============================================================================

func TestListReviews_Success(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("List", mock.Anything).Return([]domain.Review{*sampleReview()}, nil)

	rec := env.do(http.MethodGet, "/api/reviews", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`[{"id":1,"product_id":10,"rating":5,"comment":"excellent","created_at":"2024-06-01T09:30:00Z","review_metadata":{"verified":true}}]`,
		rec.Body.String())
}

func TestListReviews_EmptyIsArray(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("List", mock.Anything).Return([]domain.Review{}, nil)

	rec := env.do(http.MethodGet, "/api/reviews", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListReviews_StoreError(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("List", mock.Anything).Return(nil, errors.New("connection reset"))

	rec := env.do(http.MethodGet, "/api/reviews", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, errorMessage(t, rec))
}

// ============================================================================
// GET /api/reviews/{id}
// ============================================================================

func TestGetReview_Success(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)

	rec := env.do(http.MethodGet, "/api/reviews/1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "excellent", *got.Comment)
}

func TestGetReview_NotFound(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(42)).Return(nil, apperrors.NotFound("review", "42"))

	rec := env.do(http.MethodGet, "/api/reviews/42", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "review with id 42 not found", errorMessage(t, rec))
}

func TestGetReview_NonIntegerIDIsNotFound(t *testing.T) {
	env := setupRouter(t)

	for _, path := range []string{"/api/reviews/abc", "/api/reviews/-1", "/api/reviews/1.5"} {
		rec := env.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetReview_OverflowingIDIsNotFound(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodGet, "/api/reviews/99999999999999999999", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

// ============================================================================
// POST /api/reviews
// ============================================================================

func TestCreateReview_Success(t *testing.T) {
	env := setupRouter(t)
	created := sampleReview()

	env.products.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	env.repo.On("Create", mock.Anything, mock.MatchedBy(func(in *domain.CreateReviewInput) bool {
		return in.ProductID == 10 && in.Rating == 5 &&
			in.Comment != nil && *in.Comment == "excellent" &&
			string(in.ReviewMetadata) == `{"verified": true}`
	})).Return(created, nil)

	rec := env.do(http.MethodPost, "/api/reviews",
		`{"product_id": 10, "rating": 5, "comment": "excellent", "review_metadata": {"verified": true}}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(1), got.ID)
	env.repo.AssertExpectations(t)
}

func TestCreateReview_AppliesDefaults(t *testing.T) {
	env := setupRouter(t)

	env.products.On("Exists", mock.Anything, int64(3)).Return(true, nil)
	env.repo.On("Create", mock.Anything, mock.MatchedBy(func(in *domain.CreateReviewInput) bool {
		return in.Comment != nil && *in.Comment == "" && string(in.ReviewMetadata) == `{}`
	})).Return(sampleReview(), nil)

	rec := env.do(http.MethodPost, "/api/reviews", `{"product_id": 3, "rating": 2}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env.repo.AssertExpectations(t)
}

func TestCreateReview_ExplicitNullsStoredAsNull(t *testing.T) {
	env := setupRouter(t)

	env.products.On("Exists", mock.Anything, int64(3)).Return(true, nil)
	env.repo.On("Create", mock.Anything, mock.MatchedBy(func(in *domain.CreateReviewInput) bool {
		return in.Comment == nil && in.ReviewMetadata == nil
	})).Return(sampleReview(), nil)

	rec := env.do(http.MethodPost, "/api/reviews",
		`{"product_id": 3, "rating": 2, "comment": null, "review_metadata": null}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env.repo.AssertExpectations(t)
}

func TestCreateReview_NoData(t *testing.T) {
	env := setupRouter(t)

	for _, body := range []string{"", "{}", "null", "  {}  "} {
		rec := env.do(http.MethodPost, "/api/reviews", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, "No data provided", errorMessage(t, rec), "body %q", body)
	}
	env.products.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestCreateReview_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"product_id absent", `{"rating": 5}`, "product_id is required"},
		{"product_id null", `{"product_id": null, "rating": 5}`, "product_id is required"},
		{"both absent", `{"comment": "x"}`, "product_id is required"},
		{"rating absent", `{"product_id": 1}`, "rating is required"},
		{"rating null", `{"product_id": 1, "rating": null}`, "rating is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupRouter(t)

			rec := env.do(http.MethodPost, "/api/reviews", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.msg, errorMessage(t, rec))
			env.products.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateReview_MalformedJSON(t *testing.T) {
	env := setupRouter(t)

	for _, body := range []string{`{"product_id": `, `[1, 2]`, `{"product_id": "ten", "rating": 1}`} {
		rec := env.do(http.MethodPost, "/api/reviews", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.True(t, strings.HasPrefix(errorMessage(t, rec), "invalid request body"), body)
	}
}

func TestCreateReview_BodyTooLarge(t *testing.T) {
	env := setupRouter(t)

	body := `{"product_id": 1, "rating": 1, "comment": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := env.do(http.MethodPost, "/api/reviews", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateReview_ProductNotFound(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(999)).Return(false, nil)

	rec := env.do(http.MethodPost, "/api/reviews", `{"product_id": 999, "rating": 4}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product not found", errorMessage(t, rec))
	env.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateReview_ProductServiceUnreachable(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(1)).Return(false, errors.New("dial tcp: connection refused"))

	rec := env.do(http.MethodPost, "/api/reviews", `{"product_id": 1, "rating": 4}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error validating product: dial tcp: connection refused", errorMessage(t, rec))
}

func TestCreateReview_StoreError(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(1)).Return(true, nil)
	env.repo.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("insert failed"))

	rec := env.do(http.MethodPost, "/api/reviews", `{"product_id": 1, "rating": 4}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ============================================================================
// PUT /api/reviews/{id}
// ============================================================================

func TestUpdateReview_Success(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.repo.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.Rating == 2 && r.ProductID == 10 && *r.Comment == "changed my mind"
	})).Return(nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", `{"rating": 2, "comment": "changed my mind"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Rating)
	assert.Equal(t, "2024-06-01T09:30:00Z", got.CreatedAt.Format(time.RFC3339))
	env.products.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestUpdateReview_UnchangedProductNotValidated(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", `{"product_id": 10}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	env.products.AssertNumberOfCalls(t, "Exists", 0)
}

func TestUpdateReview_ChangedProductMissing(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.products.On("Exists", mock.Anything, int64(11)).Return(false, nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", `{"product_id": 11}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product not found", errorMessage(t, rec))
	env.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateReview_NotFoundBeforeEmptyBody(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(5)).Return(nil, apperrors.NotFound("review", "5"))

	rec := env.do(http.MethodPut, "/api/reviews/5", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateReview_NoData(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", "{}")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data provided", errorMessage(t, rec))
}

func TestUpdateReview_NullRating(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", `{"rating": null}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating cannot be null", errorMessage(t, rec))
}

func TestUpdateReview_ClearComment(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.repo.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.Comment == nil
	})).Return(nil)

	rec := env.do(http.MethodPut, "/api/reviews/1", `{"comment": null}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"comment":null`)
}

// ============================================================================
// DELETE /api/reviews/{id}
// ============================================================================

func TestDeleteReview_Success(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.repo.On("Delete", mock.Anything, int64(1)).Return(nil)

	rec := env.do(http.MethodDelete, "/api/reviews/1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Review deleted successfully"}`, rec.Body.String())
}

func TestDeleteReview_NotFound(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(8)).Return(nil, apperrors.NotFound("review", "8"))

	rec := env.do(http.MethodDelete, "/api/reviews/8", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteReview_StoreError(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("GetByID", mock.Anything, int64(1)).Return(sampleReview(), nil)
	env.repo.On("Delete", mock.Anything, int64(1)).Return(errors.New("lock timeout"))

	rec := env.do(http.MethodDelete, "/api/reviews/1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// ============================================================================
// GET /api/products/{product_id}/reviews
// ============================================================================

func TestListProductReviews_Success(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(10)).Return(true, nil)
	env.repo.On("ListByProductID", mock.Anything, int64(10)).Return([]domain.Review{*sampleReview()}, nil)

	rec := env.do(http.MethodGet, "/api/products/10/reviews", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestListProductReviews_ProductMissingIs404(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(10)).Return(false, nil)

	rec := env.do(http.MethodGet, "/api/products/10/reviews", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", errorMessage(t, rec))
}

func TestListProductReviews_ProductServiceDown(t *testing.T) {
	env := setupRouter(t)
	env.products.On("Exists", mock.Anything, int64(10)).Return(false, errors.New("timeout"))

	rec := env.do(http.MethodGet, "/api/products/10/reviews", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error validating product: timeout", errorMessage(t, rec))
}

func TestListProductReviews_NonIntegerProductID(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodGet, "/api/products/abc/reviews", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env.products.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

// ============================================================================
// Routing
// ============================================================================

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodGet, "/api/unknown", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", errorMessage(t, rec))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodPatch, "/api/reviews/1", `{"rating": 1}`)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", errorMessage(t, rec))
}

func TestRouter_EchoesCorrelationID(t *testing.T) {
	env := setupRouter(t)
	env.repo.On("List", mock.Anything).Return([]domain.Review{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reviews", http.NoBody)
	req.Header.Set(middleware.CorrelationIDHeader, "corr-abc")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "corr-abc", rec.Header().Get(middleware.CorrelationIDHeader))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRouter_LivenessProbe(t *testing.T) {
	env := setupRouter(t)

	rec := env.do(http.MethodGet, "/health/live", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
