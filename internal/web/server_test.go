package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appt-booker/internal/auth"
	"github.com/example/appt-booker/internal/config"
	"github.com/example/appt-booker/internal/store"
)

// newTestServer wires the routes without a database. Handlers behind the auth
// gate are never reached by these requests.
func newTestServer() http.Handler {
	hashKey := bytes.Repeat([]byte("h"), 32)
	blockKey := bytes.Repeat([]byte("b"), 32)

	s := &Server{
		Auth:  auth.NewStore(nil, hashKey, blockKey),
		Store: store.NewRepo(nil),
		Cfg: &config.Config{
			Booking: config.BookingConfig{
				URL:         "https://booking.example.com/dr-strange",
				Preferences: []string{"Tuesday 3pm"},
			},
		},
	}
	return s.Routes()
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestLoginPageRenders(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/login">`)
}

func TestStatusRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestJobControlsRequireSession(t *testing.T) {
	for _, path := range []string{"/activate", "/deactivate"} {
		rec := httptest.NewRecorder()
		newTestServer().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))

		require.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}
