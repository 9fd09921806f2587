package webclient

import (
	"net/http"
	"time"
)

// NewDefault returns an HTTP client with sane timeouts for talking to the
// off-chain stores.
func NewDefault(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
