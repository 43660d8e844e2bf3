package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/campusauth/pkg/auth"
	"github.com/platinummonkey/campusauth/pkg/observability"
	"github.com/platinummonkey/campusauth/pkg/storage/memory"
)

type testEnv struct {
	server   *Server
	accounts *memory.AccountStore
	hasher   *auth.BcryptHasher
	registry *prometheus.Registry
}

type envOption func(*auth.GatewayConfig, *Options)

func withLimiter(l auth.RateLimiter) envOption {
	return func(c *auth.GatewayConfig, _ *Options) { c.Limiter = l }
}

func withTrustProxy() envOption {
	return func(_ *auth.GatewayConfig, o *Options) { o.TrustProxy = true }
}

func withLogger(l *observability.Logger) envOption {
	return func(c *auth.GatewayConfig, o *Options) {
		c.Logger = l
		o.Logger = l
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	codec, err := auth.NewCodec(auth.CodecConfig{Secret: []byte(strings.Repeat("k", 32)), TTL: time.Hour})
	require.NoError(t, err)

	env := &testEnv{
		accounts: memory.NewAccountStore(),
		hasher:   auth.NewBcryptHasher(4),
		registry: prometheus.NewRegistry(),
	}
	metrics := observability.NewMetrics(env.registry)

	gwCfg := auth.GatewayConfig{
		Accounts:    env.accounts,
		Hasher:      env.hasher,
		Codec:       codec,
		Limiter:     memory.NewRateLimiter(),
		Revocations: memory.NewRevocationRegistry(),
		Policy:      auth.LoginPolicy{Limit: 5, Window: time.Minute},
		Metrics:     metrics,
	}
	srvOpts := Options{Metrics: metrics, Gatherer: env.registry}
	for _, opt := range opts {
		opt(&gwCfg, &srvOpts)
	}

	gw, err := auth.NewGateway(gwCfg)
	require.NoError(t, err)
	env.server = NewServer(gw, srvOpts)
	return env
}

func (e *testEnv) addAccount(t *testing.T, username, password string, role auth.Role, status auth.Status) *auth.Account {
	t.Helper()
	digest, err := e.hasher.Hash(password)
	require.NoError(t, err)
	acct := &auth.Account{Username: username, PasswordHash: digest, Role: role, Status: status}
	require.NoError(t, e.accounts.Create(context.Background(), acct))
	return acct
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.10:40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password, role string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password, Role: role}, "")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestLoginVerifyLogout_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)

	rec := env.login(t, "alice", "Secr3t!", "student")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	login := decode[LoginResponse](t, rec)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "alice", login.User["username"])
	assert.Equal(t, "student", login.User["role"])
	assert.NotContains(t, rec.Body.String(), "$2a$")
	assert.NotContains(t, login.User, "password_hash")

	rec = env.do(t, http.MethodGet, "/auth/verify", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	verify := decode[VerifyResponse](t, rec)
	assert.Equal(t, auth.RoleStudent, verify.User.Role)
	assert.Equal(t, "alice", verify.User.Username)

	rec = env.do(t, http.MethodPost, "/auth/logout", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/auth/verify", nil, login.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.CodeUnauthorized, errorCode(t, rec))

	// Logging out twice with a revoked token is unauthorized.
	rec = env.do(t, http.MethodPost, "/auth/logout", nil, login.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_EnumerationResistance(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)

	unknown := env.login(t, "mallory", "whatever1", "")
	wrong := env.login(t, "alice", "not-the-password", "")

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.Bytes(), wrong.Body.Bytes())
	assert.Equal(t, auth.CodeInvalidCredentials, errorCode(t, unknown))
}

func TestLogin_RoleAlias(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "tom", "teachpass", auth.RoleTeacher, auth.StatusActive)
	env.addAccount(t, "sara", "staffpass", auth.Role("staff"), auth.StatusActive)

	rec := env.login(t, "tom", "teachpass", "staff")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "teacher", decode[LoginResponse](t, rec).User["role"])

	rec = env.login(t, "sara", "staffpass", "teacher")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "teacher", decode[LoginResponse](t, rec).User["role"])

	rec = env.login(t, "tom", "teachpass", "student")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, auth.CodeRoleMismatch, body["error"])
	assert.Contains(t, body["message"], "teacher")
	assert.Contains(t, body["message"], "student")
}

func TestLogin_InactiveAccount(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "bob", "bobpass12", auth.RoleStudent, auth.StatusInactive)

	rec := env.login(t, "bob", "bobpass12", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, auth.CodeAccountInactive, errorCode(t, rec))
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", "{"},
		{"missing password", `{"username":"alice"}`},
		{"missing username", `{"password":"x"}`},
		{"blank username", `{"username":"   ","password":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			env.server.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, auth.CodeValidation, errorCode(t, rec))
		})
	}
}

func TestLogin_RejectsNonJSONContentType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)

	for i := 0; i < 5; i++ {
		rec := env.login(t, "alice", "wrong-password", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	// The limiter runs before credentials, so even the right password is refused.
	rec := env.login(t, "alice", "Secr3t!", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, auth.CodeRateLimited, errorCode(t, rec))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestLogin_RateLimitKeyedByForwardedClient(t *testing.T) {
	env := newTestEnv(t, withTrustProxy())

	from := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("X-Forwarded-For", ip+", 10.0.0.1") }
	}
	body := LoginRequest{Username: "ghost", Password: "nope-nope"}

	for i := 0; i < 5; i++ {
		env.do(t, http.MethodPost, "/auth/login", body, "", from("203.0.113.7"))
	}
	rec := env.do(t, http.MethodPost, "/auth/login", body, "", from("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/login", body, "", from("203.0.113.8"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, string, int, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func TestLogin_LimiterFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, withLimiter(brokenLimiter{}))
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)

	rec := env.login(t, "alice", "Secr3t!", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, auth.CodeServer, errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestVerify_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic YWxpY2U6cGFzcw=="},
		{"garbage token", "Bearer not.a.token"},
		{"empty bearer", "Bearer "},
	}

	var first []byte
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/auth/verify", nil, "", func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			if first == nil {
				first = rec.Body.Bytes()
			}
			assert.Equal(t, first, rec.Body.Bytes())
		})
	}
}

func TestVerify_SchemeCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)
	token := decode[LoginResponse](t, env.login(t, "alice", "Secr3t!", "")).Token

	rec := env.do(t, http.MethodGet, "/auth/verify", nil, "", func(r *http.Request) {
		r.Header.Set("Authorization", "bearer "+token)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleProbes(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)
	env.addAccount(t, "sara", "staffpass", auth.Role("staff"), auth.StatusActive)

	student := decode[LoginResponse](t, env.login(t, "alice", "Secr3t!", "")).Token
	teacher := decode[LoginResponse](t, env.login(t, "sara", "staffpass", "")).Token

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/auth/student/ping", student, http.StatusOK},
		{"/auth/teacher/ping", student, http.StatusForbidden},
		{"/auth/admin/ping", student, http.StatusForbidden},
		{"/auth/teacher/ping", teacher, http.StatusOK},
		{"/auth/student/ping", teacher, http.StatusForbidden},
		{"/auth/admin/ping", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, nil, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)
	token := decode[LoginResponse](t, env.login(t, "alice", "Secr3t!", "")).Token

	rec := env.do(t, http.MethodPost, "/auth/password", ChangePasswordRequest{CurrentPassword: "Secr3t!", NewPassword: "short"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/password", ChangePasswordRequest{CurrentPassword: "guess-1234", NewPassword: "brand-new-pass"}, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.CodeInvalidCredentials, errorCode(t, rec))

	rec = env.do(t, http.MethodPost, "/auth/password", ChangePasswordRequest{CurrentPassword: "Secr3t!", NewPassword: "brand-new-pass"}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, env.login(t, "alice", "Secr3t!", "").Code)
	assert.Equal(t, http.StatusOK, env.login(t, "alice", "brand-new-pass", "").Code)

	rec = env.do(t, http.MethodPost, "/auth/password", ChangePasswordRequest{CurrentPassword: "x", NewPassword: "yyyyyyyy"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_LogsSuccessOnce(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, withLogger(observability.NewLogger(observability.InfoLevel, &buf)))
	env.addAccount(t, "alice", "Secr3t!", auth.RoleStudent, auth.StatusActive)

	require.Equal(t, http.StatusOK, env.login(t, "alice", "Secr3t!", "student").Code)

	assert.Equal(t, 1, strings.Count(buf.String(), `"message":"login succeeded"`), buf.String())
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodGet, "/auth/login", http.MethodPost},
		{http.MethodPut, "/auth/logout", http.MethodPost},
		{http.MethodPost, "/auth/verify", http.MethodGet},
		{http.MethodGet, "/auth/password", http.MethodPost},
		{http.MethodDelete, "/auth/student/ping", http.MethodGet},
		{http.MethodPost, "/health/live", http.MethodGet},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, nil, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, tt.allow, rec.Header().Get("Allow"))
			assert.Equal(t, "method_not_allowed", errorCode(t, rec))
		})
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/auth/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
