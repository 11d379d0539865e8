package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/notify"
	"eduscore/internal/app/service"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"
	"eduscore/internal/domain/repository/memory"
	"eduscore/internal/platform/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("router-test-secret")

type testApp struct {
	handler http.Handler
	repos   repository.Repositories
	tokens  *security.TokenManager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		Env:                   config.EnvDevelopment,
		AllowedOrigins:        []string{"http://localhost:3000"},
		AllowedOriginSuffixes: []string{".vercel.app"},
	}
	repos := memory.NewRepositories()
	tokens := security.NewTokenManager(testSecret, time.Hour)
	services := service.New(repos, tokens, notify.NewDirectPublisher(repos.Notifications), nil)
	auth := middleware.NewAuth(tokens, repos.Users)
	return &testApp{
		handler: NewRouter(cfg, services, auth, prometheus.NewRegistry()),
		repos:   repos,
		tokens:  tokens,
	}
}

func (a *testApp) user(t *testing.T, role, email, studentID string, active bool) (*model.User, string) {
	t.Helper()
	hash, err := security.HashPassword("123456")
	require.NoError(t, err)
	u := &model.User{Email: email, HashedPassword: hash, Name: email, Role: role, StudentID: studentID, IsActive: active}
	require.NoError(t, a.repos.Users.Create(context.Background(), u))
	token, err := a.tokens.GenerateToken(u.ID.Hex(), u.Role)
	require.NoError(t, err)
	return u, token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantMsg  string
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (a *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := a.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, env.Message)
			}
		})
	}
}

func TestProtectAndAuthorize(t *testing.T) {
	app := newTestApp(t)
	_, studentToken := app.user(t, model.RoleStudent, "110120001@gmail.com", "110120001", true)
	_, inactiveToken := app.user(t, model.RoleTeacher, "off@gmail.com", "", false)
	ghost, ghostToken := app.user(t, model.RoleTeacher, "ghost@gmail.com", "", true)
	require.NoError(t, app.repos.Users.Delete(context.Background(), ghost.ID))

	expired, err := security.NewTokenManager(testSecret, -time.Minute).GenerateToken(ghost.ID.Hex(), model.RoleTeacher)
	require.NoError(t, err)
	forged, err := security.NewTokenManager([]byte("other-secret"), time.Hour).GenerateToken(ghost.ID.Hex(), model.RoleAdmin)
	require.NoError(t, err)

	app.run(t, []httpTest{
		{name: "no token", method: http.MethodGet, path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantMsg: "Không có quyền truy cập. Vui lòng đăng nhập."},
		{name: "garbage token", method: http.MethodGet, path: "/api/auth/me", token: "not-a-jwt", wantCode: http.StatusUnauthorized, wantMsg: "Token không hợp lệ."},
		{name: "wrong signature", method: http.MethodGet, path: "/api/auth/me", token: forged, wantCode: http.StatusUnauthorized, wantMsg: "Token không hợp lệ."},
		{name: "expired token", method: http.MethodGet, path: "/api/auth/me", token: expired, wantCode: http.StatusUnauthorized, wantMsg: "Token đã hết hạn."},
		{name: "deleted user", method: http.MethodGet, path: "/api/auth/me", token: ghostToken, wantCode: http.StatusUnauthorized, wantMsg: "Người dùng không tồn tại."},
		{name: "inactive user", method: http.MethodGet, path: "/api/auth/me", token: inactiveToken, wantCode: http.StatusUnauthorized, wantMsg: "Tài khoản đã bị vô hiệu hóa."},
		{name: "student on admin route", method: http.MethodGet, path: "/api/users", token: studentToken, wantCode: http.StatusForbidden, wantMsg: "Vai trò student không có quyền truy cập."},
		{name: "profile", method: http.MethodGet, path: "/api/auth/me", token: studentToken, wantCode: http.StatusOK},
		{name: "public exams need no token", method: http.MethodGet, path: "/api/exams/public", wantCode: http.StatusOK},
		{name: "public notifications need no token", method: http.MethodGet, path: "/api/notifications", wantCode: http.StatusOK},
		{name: "invalid id", method: http.MethodGet, path: "/api/subjects/123", token: studentToken, wantCode: http.StatusBadRequest, wantMsg: "ID không hợp lệ."},
	})
}

func TestAuthRoutes(t *testing.T) {
	app := newTestApp(t)

	app.run(t, []httpTest{
		{name: "register", method: http.MethodPost, path: "/api/auth/register",
			body:     map[string]string{"studentId": "110120009", "name": "Lê Bình", "password": "123456"},
			wantCode: http.StatusCreated, wantMsg: "Đăng ký thành công!"},
		{name: "register twice", method: http.MethodPost, path: "/api/auth/register",
			body:     map[string]string{"studentId": "110120009", "name": "Lê Bình", "password": "123456"},
			wantCode: http.StatusBadRequest, wantMsg: "Mã sinh viên này đã được đăng ký."},
		{name: "login with student id", method: http.MethodPost, path: "/api/auth/login",
			body:     map[string]string{"email": "110120009", "password": "123456"},
			wantCode: http.StatusOK, wantMsg: "Đăng nhập thành công!"},
		{name: "wrong password", method: http.MethodPost, path: "/api/auth/login",
			body:     map[string]string{"email": "110120009@gmail.com", "password": "654321"},
			wantCode: http.StatusUnauthorized, wantMsg: "Email hoặc mật khẩu không đúng."},
		{name: "malformed body", method: http.MethodPost, path: "/api/auth/login",
			body:     "{",
			wantCode: http.StatusBadRequest},
	})
}

func TestENG101Scenario(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.user(t, model.RoleAdmin, "admin@gmail.com", "", true)
	_, teacherToken := app.user(t, model.RoleTeacher, "giaovien@gmail.com", "", true)
	student, studentToken := app.user(t, model.RoleStudent, "110120001@gmail.com", "110120001", true)

	rec, env := app.do(t, http.MethodPost, "/api/subjects", adminToken, map[string]interface{}{
		"code": "ENG101", "name": "English Basics", "credits": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var subject model.Subject
	require.NoError(t, json.Unmarshal(env.Data, &subject))
	assert.Equal(t, "ENG101", subject.Code)

	rec, _ = app.do(t, http.MethodGet, "/api/subjects/"+subject.ID.Hex(), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = app.do(t, http.MethodPost, "/api/exams", adminToken, map[string]interface{}{
		"name": "English Midterm", "subject": subject.ID.Hex(), "examDate": "2025-03-10",
		"semester": "HK2", "academicYear": "2024-2025",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exam struct {
		ID   string `json:"_id"`
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &exam))
	assert.Equal(t, "EX25030001", exam.Code)

	submit := func(score float64) (int, string) {
		rec, env := app.do(t, http.MethodPost, "/api/scores", teacherToken, map[string]interface{}{
			"student": student.ID.Hex(), "exam": exam.ID, "score": score,
		})
		var data struct {
			ID    string `json:"_id"`
			Grade string `json:"grade"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data), rec.Body.String())
		return rec.Code, data.Grade
	}
	unread := func() int {
		_, env := app.do(t, http.MethodGet, "/api/notifications/unread-count", studentToken, nil)
		var data struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		return data.Count
	}

	code, grade := submit(9.2)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "A", grade)
	assert.Equal(t, 1, unread())

	code, grade = submit(6.0)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "C", grade)
	assert.Equal(t, 2, unread())

	_, env = app.do(t, http.MethodGet, "/api/scores/exam/"+exam.ID, teacherToken, nil)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count, "resubmission updates the same score")

	rec, env = app.do(t, http.MethodDelete, "/api/exams/"+exam.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Xóa kỳ thi và điểm liên quan thành công!", env.Message)

	_, env = app.do(t, http.MethodGet, "/api/scores/exam/"+exam.ID, teacherToken, nil)
	require.NotNil(t, env.Count)
	assert.Zero(t, *env.Count)
}

func TestClassJoinOverHTTP(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.user(t, model.RoleAdmin, "admin@gmail.com", "", true)
	teacher, _ := app.user(t, model.RoleTeacher, "giaovien@gmail.com", "", true)
	_, firstToken := app.user(t, model.RoleStudent, "110120001@gmail.com", "110120001", true)
	_, secondToken := app.user(t, model.RoleStudent, "110120002@gmail.com", "110120002", true)

	_, env := app.do(t, http.MethodPost, "/api/subjects", adminToken, map[string]interface{}{"code": "TA01", "name": "Tiếng Anh"})
	var subject model.Subject
	require.NoError(t, json.Unmarshal(env.Data, &subject))

	rec, env := app.do(t, http.MethodPost, "/api/classes", adminToken, map[string]interface{}{
		"code": "TA01-01", "name": "Tiếng Anh 01", "subject": subject.ID.Hex(), "teacher": teacher.ID.Hex(),
		"semester": "HK1", "academicYear": "2024-2025", "maxStudents": 1, "password": "1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var class struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &class))
	join := fmt.Sprintf("/api/classes/%s/join", class.ID)

	app.run(t, []httpTest{
		{name: "missing password", method: http.MethodPost, path: join, token: firstToken, body: map[string]string{}, wantCode: http.StatusBadRequest, wantMsg: "Vui lòng nhập mật khẩu lớp."},
		{name: "wrong password", method: http.MethodPost, path: join, token: firstToken, body: map[string]string{"password": "0000"}, wantCode: http.StatusUnauthorized, wantMsg: "Mật khẩu không đúng."},
		{name: "join", method: http.MethodPost, path: join, token: firstToken, body: map[string]string{"password": "1234"}, wantCode: http.StatusOK, wantMsg: "Tham gia lớp thành công!"},
		{name: "join again", method: http.MethodPost, path: join, token: firstToken, body: map[string]string{"password": "1234"}, wantCode: http.StatusBadRequest, wantMsg: "Bạn đã tham gia lớp này rồi."},
		{name: "class full", method: http.MethodPost, path: join, token: secondToken, body: map[string]string{"password": "1234"}, wantCode: http.StatusBadRequest, wantMsg: "Lớp đã đầy, không thể tham gia."},
		{name: "admin cannot join", method: http.MethodPost, path: join, token: adminToken, body: map[string]string{"password": "1234"}, wantCode: http.StatusForbidden, wantMsg: "Vai trò admin không có quyền truy cập."},
	})
}

func TestPlatformRoutes(t *testing.T) {
	app := newTestApp(t)

	app.run(t, []httpTest{
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, wantMsg: "EduScore API is running!"},
		{name: "welcome", method: http.MethodGet, path: "/", wantCode: http.StatusOK, wantMsg: "Welcome to EduScore API"},
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantCode: http.StatusNotFound, wantMsg: "Không tìm thấy đường dẫn: /api/nope"},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `eduscore_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		origin string
		want   string
	}{
		{"http://localhost:3000", "http://localhost:3000"},
		{"https://eduscore-web.vercel.app", "https://eduscore-web.vercel.app"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/exams/public", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			app.handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
