package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Georgechisom/alx-polling/internal/config"
	"github.com/Georgechisom/alx-polling/internal/notify"
	"github.com/Georgechisom/alx-polling/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig(base string) config.Config {
	return config.Config{
		APIBasePath:  base,
		RateRPS:      100,
		RateBurst:    10,
		StoreTimeout: 5 * time.Second,
		Auth: config.AuthConfig{
			JWTSecret:           "router-test-secret",
			SlugSecret:          "router-test-salt",
			AccessTTL:           15 * time.Minute,
			RefreshTTL:          24 * time.Hour,
			CookieName:          "polling_session",
			LoginMaxAttempts:    5,
			LoginWindow:         15 * time.Minute,
			RegisterMaxAttempts: 3,
			RegisterWindow:      time.Hour,
		},
		CORS:     config.CORSConfig{AllowedOrigins: nil},
		Security: config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:     config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), &notify.Broker{}, cfg)
	return r
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, testConfig("/api/v1"))

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig("/api/v2")
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r := newRouter(t, cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
	// Credentialed CORS so the refresh cookie can travel.
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentialed CORS, got %q", got)
	}
}

func TestGuard_ProtectedRoutes_EndToEnd(t *testing.T) {
	r := newRouter(t, testConfig("/api/v1"))

	// API clients get 401 JSON.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/polls", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("GET /api/v1/polls expected 401, got %d", w.Code)
	}

	// Browsers get a redirect carrying the original path.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/polls", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("HTML client expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login?redirect=%2Fapi%2Fv1%2Fpolls" {
		t.Fatalf("unexpected redirect: %q", loc)
	}

	// Public poll reads pass the guard and reach the handler (404 here).
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/polls/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("public poll read expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_FullFlow(t *testing.T) {
	r := newRouter(t, testConfig("/api/v1"))

	post := func(path, body, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// register → login → create poll → vote → results
	if w := post("/api/v1/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"s3cretpass"}`, ""); w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	w := post("/api/v1/auth/login", `{"email":"ada@example.com","password":"s3cretpass"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil || login.AccessToken == "" {
		t.Fatalf("decode login: %v %s", err, w.Body.String())
	}

	w = post("/api/v1/polls", `{"question":"Coffee or tea?","options":["Coffee","Tea"]}`, login.AccessToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("create poll: %d %s", w.Code, w.Body.String())
	}
	var poll struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &poll); err != nil || poll.ID == "" {
		t.Fatalf("decode poll: %v %s", err, w.Body.String())
	}

	if w := post("/api/v1/polls/"+poll.ID+"/votes", `{"option_index":1}`, ""); w.Code != http.StatusNoContent {
		t.Fatalf("vote: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/polls/"+poll.ID+"/results", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("results: %d %s", w.Code, w.Body.String())
	}
	var tally struct {
		Total  int64   `json:"total"`
		Counts []int64 `json:"counts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tally); err != nil {
		t.Fatalf("decode tally: %v", err)
	}
	if tally.Total != 1 || len(tally.Counts) != 2 || tally.Counts[1] != 1 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses otel + ratelimit + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	cfg := testConfig("/api/v1")
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // only set on https
	r := newRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	// RequestID header should be present (from RequestID middleware)
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func Test_pollRepoShim_Proxies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	shim := pollRepoShim{}
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, db, "shim@example.com", "Shim", "x")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	uid := u.ID

	p1, err := shim.CreatePoll(ctx, db, "", uid, "Q1?", []string{"A", "B"}, "slug-"+uid)
	if err != nil {
		t.Fatalf("CreatePoll: %v", err)
	}
	if p1 == nil || p1.ID == "" || p1.Question != "Q1?" {
		t.Fatalf("CreatePoll returned bad poll: %+v", p1)
	}

	if _, err := shim.GetPoll(ctx, db, p1.ID); err != nil {
		t.Fatalf("GetPoll: %v", err)
	}
	if _, err := shim.GetPollBySlug(ctx, db, "slug-"+uid); err != nil {
		t.Fatalf("GetPollBySlug: %v", err)
	}
	if _, err := shim.GetPollOwned(ctx, db, p1.ID, uid); err != nil {
		t.Fatalf("GetPollOwned: %v", err)
	}

	if err := shim.UpdatePoll(ctx, db, p1.ID, uid, "Q1 renamed?", []string{"C", "D"}); err != nil {
		t.Fatalf("UpdatePoll: %v", err)
	}
	got, err := shim.GetPoll(ctx, db, p1.ID)
	if err != nil {
		t.Fatalf("GetPoll after update: %v", err)
	}
	if got.Question != "Q1 renamed?" {
		t.Fatalf("UpdatePoll failed, question=%q", got.Question)
	}

	// Seed more for pagination and stats
	if _, err := shim.CreatePoll(ctx, db, "", uid, "Q2?", []string{"A", "B"}, "slug2-"+uid); err != nil {
		t.Fatalf("CreatePoll Q2: %v", err)
	}
	if _, err := shim.CreatePoll(ctx, db, "", uid, "Q3?", []string{"A", "B"}, "slug3-"+uid); err != nil {
		t.Fatalf("CreatePoll Q3: %v", err)
	}

	n, err := shim.CountPolls(ctx, db, uid)
	if err != nil {
		t.Fatalf("CountPolls: %v", err)
	}
	if n != 3 {
		t.Fatalf("CountPolls expected 3, got %d", n)
	}

	page, err := shim.ListPollsPage(ctx, db, uid, 0, 2)
	if err != nil {
		t.Fatalf("ListPollsPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("ListPollsPage expected 2, got %d", len(page))
	}

	count, maxTS, err := shim.PollsStats(ctx, db, uid)
	if err != nil {
		t.Fatalf("PollsStats: %v", err)
	}
	if count != 3 || maxTS == nil {
		t.Fatalf("PollsStats got count=%d maxTS=%v", count, maxTS)
	}

	if err := shim.DeletePoll(ctx, db, p1.ID, uid); err != nil {
		t.Fatalf("DeletePoll: %v", err)
	}
	if _, err := shim.GetPoll(ctx, db, p1.ID); err == nil {
		t.Fatalf("expected GetPoll to fail after delete")
	}
}
