package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eapayk/quanlitien/assetcache"
	"github.com/eapayk/quanlitien/config"
	"github.com/eapayk/quanlitien/scheduler"
	"github.com/eapayk/quanlitien/store"
	"github.com/eapayk/quanlitien/tracker"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	manager := tracker.New(context.Background(), st)
	h := New(manager, nil)

	worker, err := assetcache.New(&config.AssetsConfig{
		Upstream:  "http://localhost:3002",
		CacheName: config.AssetCacheName,
	}, assetcache.NewBackend(nil), st)
	require.NoError(t, err)

	sched, err := scheduler.New()
	require.NoError(t, err)
	require.NoError(t, sched.AddJob("update-expenses", "Refresh shell assets", "0 3 * * *", func(context.Context) error { return nil }))
	sched.Start()
	t.Cleanup(func() { _ = sched.Stop() })

	r := gin.New()
	r.Use(sessions.Sessions("quanlitien_session", cookie.NewStore([]byte("test-key"))))

	r.POST("/api/login", h.Login)
	r.POST("/api/register", h.Register)

	protected := r.Group("/api")
	protected.Use(RequireAuth(manager))
	protected.POST("/logout", h.Logout)
	protected.GET("/account", h.GetAccount)
	protected.PUT("/account", h.UpdateAccount)
	protected.GET("/expenses", h.ListExpenses)
	protected.POST("/expenses", h.AddExpense)
	protected.PUT("/expenses/:id", h.UpdateExpense)
	protected.DELETE("/expenses/:id", h.DeleteExpense)
	protected.GET("/categories", h.ListCategories)
	protected.POST("/categories", h.AddCategory)
	protected.DELETE("/categories/:id", h.DeleteCategory)
	protected.PUT("/limit", h.SetMonthlyLimit)
	protected.GET("/summary", h.GetSummary)
	protected.GET("/theme", h.GetTheme)
	protected.PUT("/theme", h.UpdateTheme)

	admin := NewAdminHandler(sched, worker)
	protected.GET("/admin/jobs", admin.GetSchedulerJobs)
	protected.POST("/admin/jobs/:id/run", admin.RunSchedulerJob)
	protected.GET("/admin/cache/stats", admin.GetCacheStats)

	return r
}

// do sends a JSON request, forwarding session cookies from a previous
// response.
func do(r *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func loginDemo(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	rec := do(r, http.MethodPost, "/api/login", `{"identifier":"demo","password":"123456"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, "demo login failed: %s", rec.Body.String())
	return rec.Result().Cookies()
}

func TestLoginEstablishesSession(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodGet, "/api/account", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	var user map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "demo123", user["id"])
	assert.NotContains(t, rec.Body.String(), "passwordHash", "hash must never leave the server")
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodGet, "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, http.MethodPost, "/api/login", `{"identifier":"nobody","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndDuplicateEmail(t *testing.T) {
	r := newTestRouter(t)

	body := `{"name":"B","email":"b@example.com","username":"userb","password":"secret1","confirmPassword":"secret1"}`
	rec := do(r, http.MethodPost, "/api/register", body, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	cookies := rec.Result().Cookies()
	rec = do(r, http.MethodPost, "/api/logout", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	dup := `{"name":"C","email":"b@example.com","username":"userc","password":"secret1","confirmPassword":"secret1"}`
	rec = do(r, http.MethodPost, "/api/register", dup, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddExpenseValidation(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPost, "/api/expenses", `{"category":"an_uong","amount":"150k","date":"2026-08-20"}`, cookies)
	require.Equal(t, http.StatusCreated, rec.Code)
	var expense store.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expense))
	assert.EqualValues(t, 150_000, expense.Amount)

	rec = do(r, http.MethodPost, "/api/expenses", `{"category":"an_uong","amount":"0","date":"2026-08-20"}`, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/expenses", `{"category":"nope","amount":"10k","date":"2026-08-20"}`, cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndDeleteExpense(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPut, "/api/expenses/1", `{"amount":"500k"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var expense store.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expense))
	assert.EqualValues(t, 500_000, expense.Amount)

	rec = do(r, http.MethodDelete, "/api/expenses/1", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodDelete, "/api/expenses/999", "", cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCategoryConflictWhileReferenced(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodDelete, "/api/categories/an_uong", "", cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// di_chuyen has no expenses and can go.
	rec = do(r, http.MethodDelete, "/api/categories/di_chuyen", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddCategoryConflictOnDuplicate(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPost, "/api/categories", `{"name":"Du lịch","icon":"fa-plane"}`, cookies)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(r, http.MethodPost, "/api/categories", `{"name":"Du lịch","icon":"fa-plane"}`, cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetMonthlyLimitAndSummary(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPut, "/api/limit", `{"limit":"2m"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/summary", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary tracker.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.EqualValues(t, 2_000_000, summary.MonthlyLimit)
	assert.EqualValues(t, 450_000, summary.TotalSpent)
	assert.Equal(t, 2, summary.ExpenseCount)
}

func TestUpdateTheme(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPut, "/api/theme", `{"selectedColorIndex":3,"cardOpacity":0.7}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var theme store.Theme
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &theme))
	assert.Equal(t, 3, theme.SelectedColorIndex)
	assert.Equal(t, store.ColorPalette[3].Primary, theme.PrimaryColor)
	assert.Equal(t, 0.7, theme.CardOpacity)

	rec = do(r, http.MethodPut, "/api/theme", `{"selectedColorIndex":99}`, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAccountDuplicateUsername(t *testing.T) {
	r := newTestRouter(t)

	body := `{"name":"B","email":"b@example.com","username":"userb","password":"secret1","confirmPassword":"secret1"}`
	rec := do(r, http.MethodPost, "/api/register", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(r, http.MethodPost, "/api/logout", "", rec.Result().Cookies())
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := loginDemo(t, r)
	rec = do(r, http.MethodPut, "/api/account", `{"name":"Demo","username":"userb","email":"demo@example.com"}`, cookies)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPost, "/api/logout", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodGet, "/api/expenses", "", rec.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusForUnknownError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusForError(fmt.Errorf("boom")))
}

func TestAdminListsSchedulerJobs(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodGet, "/api/admin/jobs", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "update-expenses")
}

func TestAdminTriggersSchedulerJob(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodPost, "/api/admin/jobs/update-expenses/run", "", cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodPost, "/api/admin/jobs/no-such-job/run", "", cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminCacheStats(t *testing.T) {
	r := newTestRouter(t)
	cookies := loginDemo(t, r)

	rec := do(r, http.MethodGet, "/api/admin/cache/stats", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), config.AssetCacheName)
}

func TestAdminUnavailableWithoutScheduler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := NewAdminHandler(nil, nil)

	r := gin.New()
	r.GET("/api/admin/jobs", admin.GetSchedulerJobs)
	r.GET("/api/admin/cache/stats", admin.GetCacheStats)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/jobs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/cache/stats", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
