package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// maxDrainBytes bounds how much of an unwanted body is read so the
// connection can be reused.
const maxDrainBytes = 64 << 10

// StatusError records a downstream response whose status counts as a failure
// for the circuit breaker.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned status %d", e.StatusCode)
}

// IsServerError reports whether status is a 5xx.
func IsServerError(status int) bool {
	return status >= 500 && status < 600
}

// DrainAndClose discards what is left of the body and closes it.
func DrainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
