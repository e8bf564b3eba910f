package testutil

import (
	"net/http"

	"scalematch/pkg/requestcontext"
)

// WithRequestID attaches a request ID as the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
