package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/campus/internal/app"
	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/handlers"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

// fakeProvider signs in whichever identity is registered under the callback code.
type fakeProvider struct {
	byCode map[string]models.Identity
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/auth?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (models.Identity, error) {
	id, ok := f.byCode[code]
	if !ok {
		return models.Identity{}, errors.New("bad code")
	}
	return id, nil
}

type env struct {
	app *app.App
	srv *httptest.Server
}

func newEnv(t *testing.T, batches storage.BatchConfig) *env {
	t.Helper()
	a := app.New(docstore.NewMemoryStore(), nil, batches, logger.Nop())
	require.NoError(t, a.Catalog.Save(context.Background(), models.Course{
		ID: "C1", Title: "Inglés A1",
		Units: []models.Unit{{Lessons: make([]models.Lesson, 2)}},
	}))

	provider := &fakeProvider{byCode: map[string]models.Identity{
		"ana":  {UID: "g-ana", Email: "ana@campus.test", Name: "Ana"},
		"boss": {UID: "g-boss", Email: "boss@campus.test", Name: "Boss"},
		"eve":  {UID: "g-eve", Email: "eve@campus.test", Name: "Eve"},
	}}
	store := handlers.NewSessionStore([]byte("0123456789abcdef0123456789abcdef"), false)
	h := handlers.NewHandler(a, store, provider, logger.Nop())

	srv := httptest.NewServer(NewRouter(h, logger.Nop(), "*"))
	t.Cleanup(srv.Close)
	return &env{app: a, srv: srv}
}

// client is one browser: its own cookie jar, redirects not followed.
func (e *env) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *env) signIn(t *testing.T, code string) *http.Client {
	t.Helper()
	c := e.client(t)
	resp, err := c.Get(e.srv.URL + "/auth/google/login")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	resp, err = c.Get(e.srv.URL + "/auth/google/callback?state=" + url.QueryEscape(state) + "&code=" + code)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return c
}

func (e *env) do(t *testing.T, c *http.Client, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *env) makeAdmin(t *testing.T, uid string) {
	t.Helper()
	require.NoError(t, e.app.Directory.UpdateRole(context.Background(), uid, models.RoleAdmin))
}

func TestSignIn_ProvisionsStudent(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")

	var me models.User
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/me", nil, &me))
	assert.Equal(t, "g-ana", me.UID)
	assert.Equal(t, models.RoleStudent, me.Role)
	assert.Equal(t, "batch_1", me.BatchID)

	// signing in again reuses the entry
	e.signIn(t, "ana")
	profiles, err := e.app.Directory.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestSignIn_RejectsForgedState(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	c := e.client(t)
	resp, err := c.Get(e.srv.URL + "/auth/google/callback?state=forged&code=ana")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignedInRoutesRequireSession(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	anon := e.client(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, anon, "GET", "/api/me", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(t, anon, "GET", "/api/me/dashboard", nil, nil))

	var courses []models.Course
	require.Equal(t, http.StatusOK, e.do(t, anon, "GET", "/api/courses", nil, &courses))
	assert.Len(t, courses, 1)
	assert.Equal(t, http.StatusNotFound, e.do(t, anon, "GET", "/api/courses/nope", nil, nil))
}

func TestProgressFlow(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")
	require.NoError(t, e.app.Enrollment.GrantCourseAccess(context.Background(), "g-ana", "C1"))

	var view app.CourseProgressView
	status := e.do(t, ana, "POST", "/api/courses/C1/progress",
		map[string]any{"lessonKey": "unit0::lesson0::closing-course", "videoEnded": true}, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 50, view.ProgressPercent)
	assert.Contains(t, view.ByLesson, "unit0::lesson0::closing")
	assert.Equal(t, "unit0::lesson1", view.NextLesson)

	// a false flag never clears a stored true
	status = e.do(t, ana, "POST", "/api/courses/C1/progress",
		map[string]any{"lessonKey": "unit0::lesson0::closing", "videoEnded": false}, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 50, view.ProgressPercent)

	assert.Equal(t, http.StatusBadRequest, e.do(t, ana, "POST", "/api/courses/C1/progress",
		map[string]any{"lessonKey": "lesson-one"}, nil))

	var rows []app.CourseSummary
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/me/dashboard", nil, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].CompletedCount)

	var feed []models.Activity
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/me/activity?limit=5", nil, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "C1", feed[0].CourseID)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")

	var me models.User
	status := e.do(t, ana, "PATCH", "/api/me", map[string]any{"idiomaAprendizaje": "francés", "nivel": "A2"}, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "francés", me.LearningLanguage)
	assert.Equal(t, "A2", me.LearningLevel)
	assert.Equal(t, "Ana", me.Name)

	assert.Equal(t, http.StatusBadRequest, e.do(t, ana, "PATCH", "/api/me", map[string]any{"role": "admin"}, nil))
}

func TestAdminRoutes(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")
	boss := e.signIn(t, "boss")
	e.makeAdmin(t, "g-boss")

	assert.Equal(t, http.StatusForbidden, e.do(t, ana, "GET", "/api/admin/users", nil, nil))

	var users []map[string]any
	require.Equal(t, http.StatusOK, e.do(t, boss, "GET", "/api/admin/users?role=alumno", nil, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "g-ana", users[0]["uid"])
	assert.Equal(t, http.StatusBadRequest, e.do(t, boss, "GET", "/api/admin/users?role=owner", nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, boss, "POST", "/api/admin/enrollments",
		map[string]any{"email": "ANA@campus.test", "courseId": "C1"}, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, boss, "POST", "/api/admin/enrollments",
		map[string]any{"uid": "g-ana", "courseId": "C404"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.do(t, boss, "POST", "/api/admin/enrollments",
		map[string]any{"courseId": "C1"}, nil))

	var rows []app.CourseSummary
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/me/dashboard", nil, &rows))
	assert.Len(t, rows, 1)

	require.Equal(t, http.StatusOK, e.do(t, boss, "PUT", "/api/admin/users/g-ana/role", map[string]any{"role": "profesor"}, nil))
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/admin/users", nil, &users))
	assert.Equal(t, http.StatusForbidden, e.do(t, ana, "PUT", "/api/admin/users/g-boss/role", map[string]any{"role": "alumno"}, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, boss, "PUT", "/api/admin/users/ghost/role", map[string]any{"role": "alumno"}, nil))

	var saved models.Course
	require.Equal(t, http.StatusOK, e.do(t, boss, "PUT", "/api/admin/courses/FR1",
		map[string]any{"titulo": "Francés", "unidades": []any{map[string]any{"lecciones": []any{"Bonjour"}}}}, &saved))
	assert.Equal(t, "FR1", saved.ID)
	var got models.Course
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/courses/FR1", nil, &got))
	assert.Equal(t, 1, got.TotalLessons())
	assert.Equal(t, http.StatusBadRequest, e.do(t, boss, "PUT", "/api/admin/courses/FR2", map[string]any{}, nil))
}

func TestDisabledAccount(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")
	boss := e.signIn(t, "boss")
	e.makeAdmin(t, "g-boss")

	var status map[string]string
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/account-status?email=ana@campus.test", nil, &status))
	assert.Equal(t, "active", status["status"])

	require.Equal(t, http.StatusOK, e.do(t, boss, "PUT", "/api/admin/users/g-ana/status", map[string]any{"desactivado": true}, nil))
	assert.Equal(t, http.StatusForbidden, e.do(t, ana, "GET", "/api/me", nil, nil))
	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/account-status?email=ana@campus.test", nil, &status))
	assert.Equal(t, "disabled", status["status"])

	assert.Equal(t, http.StatusBadRequest, e.do(t, boss, "PUT", "/api/admin/users/g-boss/status", map[string]any{"desactivado": true}, nil))

	require.Equal(t, http.StatusOK, e.do(t, boss, "PUT", "/api/admin/users/g-ana/status", map[string]any{"desactivado": false}, nil))
	assert.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/me", nil, nil))

	require.Equal(t, http.StatusOK, e.do(t, ana, "GET", "/api/account-status?email=nobody@campus.test", nil, &status))
	assert.Equal(t, "unknown", status["status"])
}

func TestSignIn_CapacityExceeded(t *testing.T) {
	cfg := storage.DefaultBatchConfig()
	cfg.MaxPerBatch = 1
	cfg.MaxBatches = 1
	e := newEnv(t, cfg)
	e.signIn(t, "ana")

	c := e.client(t)
	resp, err := c.Get(e.srv.URL + "/auth/google/login")
	require.NoError(t, err)
	resp.Body.Close()
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	resp, err = c.Get(e.srv.URL + "/auth/google/callback?state=" + url.QueryEscape(loc.Query().Get("state")) + "&code=eve")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	e := newEnv(t, storage.DefaultBatchConfig())
	ana := e.signIn(t, "ana")
	assert.Equal(t, http.StatusNoContent, e.do(t, ana, "POST", "/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(t, ana, "GET", "/api/me", nil, nil))
}
