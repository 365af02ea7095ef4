package product

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/einarr2o12/review-service/pkg/httpclient"
)

// Validator reports whether a product exists in the product service.
type Validator interface {
	// Exists returns true when the product service answers 200 for id and
	// false for any other status. A non-nil error means existence could not
	// be determined.
	Exists(ctx context.Context, id int64) (bool, error)
}

// Validation outcome labels.
const (
	resultFound    = "found"
	resultNotFound = "not_found"
	resultError    = "error"
)

var validationTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "product_validation_total",
		Help: "Product existence checks against the product service, by result.",
	},
	[]string{"result"},
)

// Getter issues GET requests. *httpclient.CircuitBreakerClient and
// *httpclient.Client both satisfy it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client checks product existence over HTTP.
type Client struct {
	http    Getter
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a product client rooted at baseURL.
func NewClient(http Getter, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Exists calls GET {baseURL}/api/products/{id}.
func (c *Client) Exists(ctx context.Context, id int64) (bool, error) {
	url := c.baseURL + "/api/products/" + strconv.FormatInt(id, 10)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		validationTotal.WithLabelValues(resultError).Inc()
		c.logger.ErrorContext(ctx, "product validation failed",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
		return false, fmt.Errorf("get product %d: %w", id, err)
	}
	defer httpclient.DrainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		validationTotal.WithLabelValues(resultNotFound).Inc()
		c.logger.DebugContext(ctx, "product not found",
			slog.Int64("product_id", id),
			slog.Int("status", resp.StatusCode),
		)
		return false, nil
	}

	validationTotal.WithLabelValues(resultFound).Inc()
	return true, nil
}
