package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/einarr2o12/review-service/internal/domain"
	"github.com/einarr2o12/review-service/internal/service"
	"github.com/einarr2o12/review-service/pkg/httputil"
	"github.com/einarr2o12/review-service/pkg/validator"
)

// maxBodyBytes caps request bodies at 1MB.
const maxBodyBytes = 1 << 20

const msgNoData = "No data provided"

func init() {
	validator.RegisterOptional(
		domain.Field[int64]{},
		domain.Field[int]{},
		domain.Field[string]{},
		domain.Field[json.RawMessage]{},
	)
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for creating a review.
// product_id and rating must be present and non-null.
type CreateReviewRequest struct {
	ProductID      domain.Field[int64]           `json:"product_id" validate:"required"`
	Rating         domain.Field[int]             `json:"rating" validate:"required"`
	Comment        domain.Field[string]          `json:"comment"`
	ReviewMetadata domain.Field[json.RawMessage] `json:"review_metadata"`
}

// toInput applies creation defaults: an absent comment becomes "" and absent
// metadata becomes {}. Explicit nulls are kept as NULL.
func (req *CreateReviewRequest) toInput() *domain.CreateReviewInput {
	in := &domain.CreateReviewInput{
		ProductID:      req.ProductID.Value,
		Rating:         req.Rating.Value,
		Comment:        new(string),
		ReviewMetadata: json.RawMessage(`{}`),
	}
	if req.Comment.Set {
		in.Comment = req.Comment.Ptr()
	}
	if req.ReviewMetadata.Set {
		in.ReviewMetadata = nil
		if req.ReviewMetadata.IsPresent() {
			in.ReviewMetadata = req.ReviewMetadata.Value
		}
	}
	return in
}

// UpdateReviewRequest is the JSON request body for updating a review. Every
// field is optional.
type UpdateReviewRequest struct {
	ProductID      domain.Field[int64]           `json:"product_id"`
	Rating         domain.Field[int]             `json:"rating"`
	Comment        domain.Field[string]          `json:"comment"`
	ReviewMetadata domain.Field[json.RawMessage] `json:"review_metadata"`
}

func (req *UpdateReviewRequest) toInput() *domain.UpdateReviewInput {
	return &domain.UpdateReviewInput{
		ProductID:      req.ProductID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		ReviewMetadata: req.ReviewMetadata,
	}
}

// --- Handlers ---

// ListReviews handles GET /api/reviews
// @Summary List reviews
// @Description Returns every review ordered by id
// @Tags reviews
// @Produce json
// @Success 200 {array} domain.Review
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// GetReview handles GET /api/reviews/{id}
// @Summary Get a review
// @Tags reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} domain.Review
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/reviews/{id} [get]
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, review)
}

// CreateReview handles POST /api/reviews
// @Summary Create a review
// @Description Validates the product against the product service, then stores the review.
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body CreateReviewRequest true "Review to submit"
// @Success 201 {object} domain.Review
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	empty, err := decodeBody(w, r, &req)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if empty {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: msgNoData})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, review)
}

// UpdateReview handles PUT /api/reviews/{id}
// @Summary Update a review
// @Description Applies only the fields present in the body. A changed product_id is re-validated.
// @Tags reviews
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body UpdateReviewRequest true "Fields to change"
// @Success 200 {object} domain.Review
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/reviews/{id} [put]
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateReviewRequest
	empty, err := decodeBody(w, r, &req)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	// An empty body is passed through as nil so a missing review is still
	// reported as 404 first.
	var in *domain.UpdateReviewInput
	if !empty {
		in = req.toInput()
	}

	review, err := h.service.UpdateReview(r.Context(), id, in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/reviews/{id}
// @Summary Delete a review
// @Tags reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} httputil.MessageResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/reviews/{id} [delete]
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.MessageResponse{Message: "Review deleted successfully"})
}

// ListProductReviews handles GET /api/products/{product_id}/reviews
// @Summary List product reviews
// @Description Returns the reviews of one product. The product must exist in the product service.
// @Tags reviews
// @Produce json
// @Param product_id path int true "Product ID"
// @Success 200 {array} domain.Review
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 500 {object} httputil.ErrorResponse
// @Router /api/products/{product_id}/reviews [get]
func (h *ReviewHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseID(w, r, chi.URLParam(r, "product_id"))
	if !ok {
		return
	}

	reviews, err := h.service.ListProductReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, reviews)
}

// --- Body decoding ---

var errInvalidBody = errors.New("invalid request body")

// decodeBody reads a JSON object into dst. It reports empty for a missing
// body, a JSON null and an object with no keys; dst is left untouched then.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) (empty bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return false, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return true, nil
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return false, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if len(keys) == 0 {
		return true, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return false, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{Error: "request body too large"})
		return
	}
	if errors.Is(err, errInvalidBody) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid request body"})
}
