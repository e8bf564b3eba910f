package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalematch/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	before := time.Now()
	var pinned time.Time
	var ok bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pinned, ok = requestcontext.TimeOf(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.False(t, pinned.Before(before))
	assert.False(t, pinned.After(time.Now()))
}
