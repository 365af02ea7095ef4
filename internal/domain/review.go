package domain

import (
	"encoding/json"
	"time"
)

// Review is a rating and optional comment left for a product. The product
// lives in the product service; ProductID is not a local foreign key.
type Review struct {
	ID             int64           `json:"id"`
	ProductID      int64           `json:"product_id"`
	Rating         int             `json:"rating"`
	Comment        *string         `json:"comment"`
	CreatedAt      *time.Time      `json:"created_at"`
	ReviewMetadata json.RawMessage `json:"review_metadata"`
}

// CreateReviewInput carries the fields of a new review after defaults have
// been applied. A nil Comment or ReviewMetadata is stored as NULL.
type CreateReviewInput struct {
	ProductID      int64
	Rating         int
	Comment        *string
	ReviewMetadata json.RawMessage
}

// UpdateReviewInput holds the fields to change on an existing review. Only
// fields marked Set are written.
type UpdateReviewInput struct {
	ProductID      Field[int64]
	Rating         Field[int]
	Comment        Field[string]
	ReviewMetadata Field[json.RawMessage]
}

// ChangesProduct reports whether the input moves the review to a product
// other than current.
func (in *UpdateReviewInput) ChangesProduct(current int64) bool {
	return in.ProductID.IsPresent() && in.ProductID.Value != current
}

// Apply copies the set fields onto r. CreatedAt is never touched.
func (in *UpdateReviewInput) Apply(r *Review) {
	if in.ProductID.IsPresent() {
		r.ProductID = in.ProductID.Value
	}
	if in.Rating.IsPresent() {
		r.Rating = in.Rating.Value
	}
	if in.Comment.Set {
		r.Comment = in.Comment.Ptr()
	}
	if in.ReviewMetadata.Set {
		if in.ReviewMetadata.Null {
			r.ReviewMetadata = nil
		} else {
			r.ReviewMetadata = in.ReviewMetadata.Value
		}
	}
}
