package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyuchat/persona-ai-platform/internal/community"
	"github.com/moyuchat/persona-ai-platform/internal/persona"
	"github.com/moyuchat/persona-ai-platform/internal/uploads"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dataDir := t.TempDir()
	uploadsDir := t.TempDir()
	saver := uploads.NewSaver(uploadsDir, nil)

	require.NoError(t, os.WriteFile(filepath.Join(uploadsDir, "hello.txt"), []byte("hi"), 0o644))

	return New(&Config{
		PersonaHandler:   persona.NewHandler(persona.NewStore(dataDir), nil, saver, nil),
		CommunityHandler: community.NewHandler(community.NewStore(dataDir), saver, "user_752943", 3, nil),
		UploadsDir:       uploadsDir,
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPersonaRoutesMounted(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/personas", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommunityRoutesMountedOnBothPrefixes(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/posts", "/api/community/posts"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUploadsServedStatically(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/hello.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hi", rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
