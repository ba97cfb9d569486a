package personal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s/campus/internal/app"
	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

func newService() *Service {
	a := app.New(docstore.NewMemoryStore(), nil, storage.DefaultBatchConfig(), logger.Nop())
	h := handlers.NewHandler(a, handlers.NewSessionStore([]byte("0123456789abcdef0123456789abcdef"), false), nil, logger.Nop())
	return &Service{Handler: *h}
}

func TestUpdateProfile_EntryGone(t *testing.T) {
	s := newService()
	stale := &storage.Profile{User: models.User{UID: "g-gone", Role: models.RoleStudent}}

	req := httptest.NewRequest(http.MethodPatch, "/api/me", strings.NewReader(`{}`))
	req = req.WithContext(handlers.WithProfile(req.Context(), stale))
	rr := httptest.NewRecorder()

	s.HandleUpdateProfile(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestActivity_RejectsBadLimit(t *testing.T) {
	s := newService()
	p := &storage.Profile{User: models.User{UID: "g-1"}}

	req := httptest.NewRequest(http.MethodGet, "/api/me/activity?limit=-3", nil)
	req = req.WithContext(handlers.WithProfile(req.Context(), p))
	rr := httptest.NewRecorder()

	s.HandleActivity(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
