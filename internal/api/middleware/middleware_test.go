package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/config"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/pkg/jwt"
	"github.com/izeinnn/University-management-system/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:      "test-secret-key-for-unit-testing-2026",
		JWTAlgorithm:   "HS256",
		AccessTokenTTL: 15 * time.Minute,
	})
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id": c.GetString("user_id"),
		"role":    c.GetString("role"),
	})
}

// ── JWTAuth ──

func TestJWTAuth(t *testing.T) {
	mgr := newTestJWT()
	valid, _ := mgr.GenerateAccessToken("user-1", "student")

	issuedAt := time.Now().Add(-time.Hour)
	expired, _ := mgr.WithClock(func() time.Time { return issuedAt }).GenerateAccessToken("user-1", "student")

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "缺少认证头"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "认证头格式无效"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "认证头格式无效"},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized, "Token 无效"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token 已过期"},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", JWTAuth(mgr), okHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				resp := parseResponse(w)
				if resp.Code != 10002 || resp.Message != tt.wantMsg {
					t.Errorf("unexpected response: %+v", resp)
				}
				return
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["user_id"] != "user-1" || body["role"] != "student" {
				t.Errorf("身份未注入上下文: %v", body)
			}
		})
	}
}

// ── ResolveUser ──

type memUsers struct {
	users map[string]*model.User
	err   error
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func TestResolveUser(t *testing.T) {
	mgr := newTestJWT()
	// Token 签发时为 admin，之后被降级为 student
	token, _ := mgr.GenerateAccessToken("user-1", "admin")

	tests := []struct {
		name       string
		loader     *memUsers
		wantStatus int
		wantCode   int
		wantRole   string
	}{
		{"demoted", &memUsers{users: map[string]*model.User{"user-1": {UserID: "user-1", Role: "student", IsActive: true}}}, http.StatusOK, 0, "student"},
		{"unchanged", &memUsers{users: map[string]*model.User{"user-1": {UserID: "user-1", Role: "admin", IsActive: true}}}, http.StatusOK, 0, "admin"},
		{"inactive", &memUsers{users: map[string]*model.User{"user-1": {UserID: "user-1", Role: "admin", IsActive: false}}}, http.StatusForbidden, 11002, ""},
		{"missing", &memUsers{users: map[string]*model.User{}}, http.StatusUnauthorized, 10002, ""},
		{"store error", &memUsers{err: errors.New("connection reset")}, http.StatusInternalServerError, 50000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", JWTAuth(mgr), ResolveUser(tt.loader, zap.NewNop()), okHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/p", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				if resp := parseResponse(w); resp.Code != tt.wantCode {
					t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
				}
				return
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["role"] != tt.wantRole {
				t.Errorf("上下文角色应以库中记录为准: want %s, got %s", tt.wantRole, body["role"])
			}
		})
	}
}

func TestResolveUser_DemotedAdminLosesAdminRoutes(t *testing.T) {
	mgr := newTestJWT()
	token, _ := mgr.GenerateAccessToken("user-1", "admin")
	loader := &memUsers{users: map[string]*model.User{"user-1": {UserID: "user-1", Role: "student", IsActive: true}}}

	r := gin.New()
	r.GET("/users", JWTAuth(mgr), ResolveUser(loader, zap.NewNop()), RoleAuth("admin"), okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("降级后的管理员不应再访问管理接口，got %d", w.Code)
	}
}

// ── RoleAuth ──

func TestRoleAuth(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"allowed", "admin", http.StatusOK},
		{"denied", "student", http.StatusForbidden},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", func(c *gin.Context) {
				if tt.role != "" {
					c.Set("role", tt.role)
				}
				c.Next()
			}, RoleAuth("admin"), okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ── RateLimit ──

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (m *memLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	limiter := &memLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 3, time.Minute, zap.NewNop()), okHandler)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest("POST", "/login", nil))
		if i < 3 && last.Code != http.StatusOK {
			t.Fatalf("第 %d 次请求应放行，实际 %d", i+1, last.Code)
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", last.Code)
	}
	if resp := parseResponse(last); resp.Code != 10004 {
		t.Errorf("expected code 10004, got %d", resp.Code)
	}
	if last.Header().Get("Retry-After") != "60" {
		t.Errorf("unexpected Retry-After %q", last.Header().Get("Retry-After"))
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		limiter RateLimiter
	}{
		{"nil limiter", nil},
		{"limiter error", &memLimiter{err: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/login", RateLimit(tt.limiter, 1, time.Minute, zap.NewNop()), okHandler)
			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
				if w.Code != http.StatusOK {
					t.Fatalf("降级时应放行，实际 %d", w.Code)
				}
			}
		})
	}
}

// ── BodyLimit ──

func TestBodyLimit_RejectsLargeBody(t *testing.T) {
	r := gin.New()
	r.POST("/p", BodyLimit(16), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader(strings.Repeat("x", 64))))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10005 {
		t.Errorf("expected code 10005, got %d", resp.Code)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	r := gin.New()
	r.POST("/p", BodyLimit(1024), okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/p", strings.NewReader(`{"a":1}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

// ── RequestID ──

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequestID(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "req-123" || w.Body.String() != "req-123" {
		t.Errorf("应沿用外部传入的 Request-ID，实际 header=%q body=%q", w.Header().Get("X-Request-ID"), w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("超长 Request-ID 应被替换为 UUID，实际 %q", got)
	}
}

// ── CORS ──

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/p", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/p", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/p", okHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("未知来源不应返回 Allow-Origin，实际 %q", got)
	}
}

// ── SecurityHeaders ──

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantCache string
	}{
		{"api", "/api/v1/courses/c1/roster.xlsx", "no-store"},
		{"health", "/health", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(SecurityHeaders())
			r.GET(tt.path, okHandler)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))

			if got := w.Header().Get("Cache-Control"); got != tt.wantCache {
				t.Errorf("Cache-Control: want %q, got %q", tt.wantCache, got)
			}
			if w.Header().Get("Content-Security-Policy") != "default-src 'none'; frame-ancestors 'none'" {
				t.Errorf("CSP 不正确: %s", w.Header().Get("Content-Security-Policy"))
			}
			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("缺少 nosniff")
			}
		})
	}
}

// ── Recovery ──

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/p", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 50000 {
		t.Errorf("expected code 50000, got %d", resp.Code)
	}
}
