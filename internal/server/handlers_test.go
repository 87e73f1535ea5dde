package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jfmyers9/lyricqueue/internal/library"
	"github.com/jfmyers9/lyricqueue/internal/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("artist: %w", library.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("page 1: %w", library.ErrUpstreamUnavailable), http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{fmt.Errorf("%w: cursor is empty", service.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{fmt.Errorf("scrape: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		if status != tt.wantStatus || code != tt.wantCode {
			t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, status, code, tt.wantStatus, tt.wantCode)
		}
	}
}
