package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteswriter/noteswriter-backend/internal/models"
	"github.com/noteswriter/noteswriter-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

type memoryUsers struct {
	mu        sync.Mutex
	byEmail   map[string]string
	createErr error
	lookupErr error
}

func (u *memoryUsers) Create(ctx context.Context, user *models.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.createErr != nil {
		return u.createErr
	}
	if _, ok := u.byEmail[user.Email]; ok {
		return fmt.Errorf("duplicate key value violates unique constraint \"idx_nw_users_email\"")
	}
	u.byEmail[user.Email] = user.Password
	return nil
}

func (u *memoryUsers) PasswordHashByEmail(ctx context.Context, email string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.lookupErr != nil {
		return "", u.lookupErr
	}
	hash, ok := u.byEmail[email]
	if !ok {
		return "", services.ErrUserNotFound
	}
	return hash, nil
}

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.calls++
	return g.reply, g.err
}

type testEnv struct {
	router *gin.Engine
	store  *services.MemoryStore
	mailer *recordingMailer
	users  *memoryUsers
	gen    *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  services.NewMemoryStore(),
		mailer: &recordingMailer{},
		users:  &memoryUsers{byEmail: make(map[string]string)},
		gen:    &stubGenerator{reply: "hi"},
	}
	otp := services.NewOTPManager(env.store, env.mailer, env.users, 3)
	env.router = SetupRouter(otp, services.NewAccountService(env.users), services.NewChatRelay(env.gen), []string{"*"})
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) storedCode(t *testing.T, email string) string {
	t.Helper()
	code, err := e.store.Get(context.Background(), "otp:"+email)
	require.NoError(t, err)
	return code
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", "")
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok","message":"API is running"}`, w.Body.String())

	w = env.do(http.MethodGet, "/auth/", "")
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok","message":"API is running","service":"noteswriter-backend"}`, w.Body.String())

	w = env.do(http.MethodGet, "/chatbot/", "")
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok","otpSent":true,"email":"a@x.com"}`, w.Body.String())
	assert.Equal(t, []string{"a@x.com"}, env.mailer.sent)

	w = env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`)
	assert.Equal(t, 200, w.Code)
	body := decode(t, w)
	assert.Equal(t, "exists", body["status"])
	assert.Equal(t, false, body["otpSent"])
	assert.Equal(t, "a@x.com", body["email"])
	timeLeft, ok := body["timeLeft"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 900, timeLeft, 2)
	assert.Len(t, env.mailer.sent, 1, "pending code is not re-sent")
}

func TestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/signup", `{}`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Email is required"}`, w.Body.String())

	w = env.do(http.MethodPost, "/auth/signup", `{"email":""}`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Email is required"}`, w.Body.String())

	w = env.do(http.MethodPost, "/auth/signup", `{"email":`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON body"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("email=a@x.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Content-Type must be application/json"}`, w.Body.String())
}

func TestSignup_DispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errors.New("smtp: 535 authentication failed")

	w := env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`)
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"error":"Failed to send email","details":"smtp: 535 authentication failed"}`, w.Body.String())
}

func TestVerifyOTP_SignupToSignin(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, 200, env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`).Code)
	code := env.storedCode(t, "a@x.com")

	w := env.do(http.MethodPost, "/auth/verify_otp", fmt.Sprintf(`{"email":"a@x.com","otp":%q,"password":"hash1"}`, code))
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"verified","verified":true,"message":"OTP verified and user created"}`, w.Body.String())
	assert.Equal(t, "hash1", env.users.byEmail["a@x.com"])

	w = env.do(http.MethodPost, "/auth/verify_otp", fmt.Sprintf(`{"email":"a@x.com","otp":%q,"password":"hash1"}`, code))
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"status":"not_found","verified":false,"message":"OTP does not exist or has expired"}`, w.Body.String())

	w = env.do(http.MethodPost, "/auth/signin", `{"email":"a@x.com","password":"hash1"}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	w = env.do(http.MethodPost, "/auth/signin", `{"email":"a@x.com","password":"hash2"}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())
}

func TestVerifyOTP_Rejections(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/verify_otp", `{"email":"a@x.com","otp":"123456"}`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Email, OTP and password are required"}`, w.Body.String())

	require.Equal(t, 200, env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`).Code)
	wrong := "000000"
	if env.storedCode(t, "a@x.com") == wrong {
		wrong = "111111"
	}
	attempt := fmt.Sprintf(`{"email":"a@x.com","otp":%q,"password":"hash1"}`, wrong)

	for i := 0; i < 2; i++ {
		w = env.do(http.MethodPost, "/auth/verify_otp", attempt)
		assert.Equal(t, 400, w.Code)
		assert.JSONEq(t, `{"status":"invalid","verified":false,"message":"Invalid OTP"}`, w.Body.String())
	}

	w = env.do(http.MethodPost, "/auth/verify_otp", attempt)
	assert.Equal(t, 400, w.Code)
	body := decode(t, w)
	assert.Equal(t, "too_many_attempts", body["status"])
	assert.Equal(t, false, body["verified"])

	w = env.do(http.MethodPost, "/auth/verify_otp", attempt)
	assert.Equal(t, "not_found", decode(t, w)["status"])
}

func TestVerifyOTP_RegistrationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.users.createErr = errors.New("connection reset by peer")

	require.Equal(t, 200, env.do(http.MethodPost, "/auth/signup", `{"email":"a@x.com"}`).Code)
	code := env.storedCode(t, "a@x.com")

	w := env.do(http.MethodPost, "/auth/verify_otp", fmt.Sprintf(`{"email":"a@x.com","otp":%q,"password":"hash1"}`, code))
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"status":"db_error","verified":true,"message":"OTP verified but failed to create user","details":"connection reset by peer"}`, w.Body.String())
}

func TestSignin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/signin", `{"email":"nobody@x.com","password":"hash1"}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())

	w = env.do(http.MethodPost, "/auth/signin", `{"email":"a@x.com"}`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Email and password are required"}`, w.Body.String())

	env.users.lookupErr = errors.New("dial tcp: connection refused")
	w = env.do(http.MethodPost, "/auth/signin", `{"email":"a@x.com","password":"hash1"}`)
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"error":"Database error","details":"dial tcp: connection refused"}`, w.Body.String())
}

func TestDebugRedis(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/auth/debug/redis/a@x.com", "")
	assert.Equal(t, 404, w.Code)
	assert.JSONEq(t, `{"email":"a@x.com","redis_key":"model_output:a@x.com","message":"No data found in Redis"}`, w.Body.String())

	env.store.Set(context.Background(), "model_output:a@x.com", `{"summary":"notes","pages":2}`, time.Hour)
	w = env.do(http.MethodGet, "/auth/debug/redis/a@x.com", "")
	assert.Equal(t, 200, w.Code)

	body := decode(t, w)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "model_output:a@x.com", body["redis_key"])
	assert.InDelta(t, 3600, body["ttl_seconds"], 2)
	assert.Equal(t, map[string]interface{}{"summary": "notes", "pages": float64(2)}, body["data"])

	env.store.Set(context.Background(), "model_output:team/notes@x.com", `{"summary":"shared"}`, time.Hour)
	w = env.do(http.MethodGet, "/auth/debug/redis/team/notes@x.com", "")
	assert.Equal(t, 200, w.Code)
	body = decode(t, w)
	assert.Equal(t, "team/notes@x.com", body["email"])
	assert.Equal(t, "model_output:team/notes@x.com", body["redis_key"])

	w = env.do(http.MethodGet, "/auth/debug/redis/", "")
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Email is required"}`, w.Body.String())

	env.store.Set(context.Background(), "model_output:b@x.com", "{broken", time.Hour)
	w = env.do(http.MethodGet, "/auth/debug/redis/b@x.com", "")
	assert.Equal(t, 500, w.Code)
	assert.Contains(t, decode(t, w), "error")
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/chatbot/chat", `{"message":"hello"}`)
	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"response":"hi"}`, w.Body.String())

	w = env.do(http.MethodPost, "/chatbot/chat", `{"message":""}`)
	assert.Equal(t, 400, w.Code)
	assert.JSONEq(t, `{"error":"Missing 'message' in request body"}`, w.Body.String())
	assert.Equal(t, 1, env.gen.calls)

	env.gen.err = errors.New("Error 429, RESOURCE_EXHAUSTED")
	w = env.do(http.MethodPost, "/chatbot/chat", `{"message":"hello"}`)
	assert.Equal(t, 500, w.Code)
	assert.JSONEq(t, `{"error":"Failed to generate response","details":"Error 429, RESOURCE_EXHAUSTED"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/signup", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
