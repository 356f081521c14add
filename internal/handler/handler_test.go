package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/internal/service"
	"yourmind-go/pkg/maps"
	"yourmind-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

func withUser(user *model.UserProfile) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", user)
		c.Set("token", "access-token")
		c.Next()
	}
}

// fakeChat 按调用参数返回预设结果。
type fakeChat struct {
	result   *service.TurnResult
	err      error
	requests []service.TurnRequest
}

func (f *fakeChat) Catalog() service.CatalogView { return service.CatalogView{} }

func (f *fakeChat) StartSession(ctx context.Context, userID, modeID, testID string) (*service.TurnResult, error) {
	return &service.TurnResult{Session: &model.ChatSession{ID: "started", UserID: userID, ModeID: modeID, TestID: testID}, SessionCreated: true}, nil
}

func (f *fakeChat) SendTurn(ctx context.Context, userID string, req service.TurnRequest) (*service.TurnResult, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func (f *fakeChat) ListSessions(ctx context.Context, userID string) ([]service.SessionPreview, error) {
	return nil, nil
}

func (f *fakeChat) GetMessages(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if sessionID == "missing" {
		return nil, service.ErrSessionNotFound
	}
	return []model.ChatMessage{{ID: "m1", SessionID: sessionID, Sender: "ai", Kind: "intro", Content: "안녕하세요"}}, nil
}

func (f *fakeChat) RenameSession(ctx context.Context, userID, sessionID, title string) (*model.ChatSession, error) {
	if strings.TrimSpace(title) == "" {
		return nil, service.ErrEmptyTitle
	}
	return &model.ChatSession{ID: sessionID, UserID: userID, Title: title}, nil
}

func (f *fakeChat) DeleteSession(ctx context.Context, userID, sessionID string) error { return nil }

type fakeSummary struct{}

func (fakeSummary) Summarize(ctx context.Context, userID, sessionID string) (*service.SummaryResult, error) {
	return nil, service.ErrEmptySession
}

func (fakeSummary) Export(ctx context.Context, userID, sessionID string) (*service.ExportResult, error) {
	return nil, service.ErrExportUnavailable
}

type fakeUsers struct {
	profile *model.UserProfile
	revoked map[string]bool
	err     error
}

func (f *fakeUsers) Register(ctx context.Context, req service.RegisterRequest) (*model.UserProfile, error) {
	if req.Email == "taken@example.com" {
		return nil, service.ErrEmailTaken
	}
	if len(req.Password) < 6 {
		return nil, &service.InputError{Message: "비밀번호는 6자 이상이어야 합니다."}
	}
	return &model.UserProfile{ID: "u-new", Name: req.Name, Email: req.Email}, nil
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*model.UserProfile, string, string, error) {
	if password != "secret1" {
		return nil, "", "", service.ErrInvalidCredentials
	}
	return f.profile, "access", "refresh", nil
}

func (f *fakeUsers) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if f.profile == nil || f.profile.ID != userID {
		return nil, errors.New("not found")
	}
	return f.profile, nil
}

func (f *fakeUsers) UpdateProfile(ctx context.Context, userID string, upd service.ProfileUpdate) (*model.UserProfile, error) {
	if upd.StressLevel != nil && *upd.StressLevel > 100 {
		return nil, &service.InputError{Message: "스트레스 수치는 0에서 100 사이여야 합니다."}
	}
	return f.profile, nil
}

func (f *fakeUsers) DeleteProfile(ctx context.Context, userID string) error { return nil }

func (f *fakeUsers) Logout(ctx context.Context, tokenString string) error {
	if f.revoked == nil {
		f.revoked = map[string]bool{}
	}
	f.revoked[tokenString] = true
	return f.err
}

func (f *fakeUsers) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	return "", "", errors.New("refresh token revoked")
}

func (f *fakeUsers) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return f.revoked[tokenString], nil
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&service.InputError{Message: "x"}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", service.ErrEmptyMessage), http.StatusBadRequest},
		{service.ErrUnknownTest, http.StatusBadRequest},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{repository.ErrConversationNotFound, http.StatusNotFound},
		{service.ErrSessionBusy, http.StatusConflict},
		{service.ErrEmailTaken, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrChatUnavailable, http.StatusBadGateway},
		{service.ErrExportUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(tc.err); got != tc.status {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
	if _, msg := statusFor(service.ErrSessionBusy); msg != service.NoticeSessionBusy {
		t.Errorf("busy message = %q", msg)
	}
}

func chatRouter(chat *fakeChat) *gin.Engine {
	h := NewChatHandler(chat, fakeSummary{}, &fakeUsers{}, nil)
	r := gin.New()
	g := r.Group("/chat", withUser(&model.UserProfile{ID: "u1"}))
	g.POST("/turn", h.SendTurn)
	g.POST("/sessions", h.StartSession)
	g.GET("/sessions/:id/messages", h.GetMessages)
	g.PUT("/sessions/:id", h.RenameSession)
	g.POST("/sessions/:id/summary", h.Summary)
	g.POST("/sessions/:id/export", h.Export)
	return r
}

func TestSendTurnChatUnavailableKeepsData(t *testing.T) {
	chat := &fakeChat{
		result: &service.TurnResult{Session: &model.ChatSession{ID: "s1"}, Notice: service.NoticeChatUnavailable},
		err:    fmt.Errorf("send: %w", service.ErrChatUnavailable),
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/turn", strings.NewReader(`{"sessionId":"s1","message":"안녕"}`))
	req.Header.Set("Content-Type", "application/json")
	chatRouter(chat).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	env := decode(t, rec)
	if env.Message != service.NoticeChatUnavailable {
		t.Errorf("message = %q", env.Message)
	}
	var result service.TurnResult
	if err := json.Unmarshal(env.Data, &result); err != nil || result.Session == nil || result.Session.ID != "s1" {
		t.Errorf("data = %s, err %v", env.Data, err)
	}
}

func TestSendTurnBusy(t *testing.T) {
	chat := &fakeChat{err: service.ErrSessionBusy}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/turn", strings.NewReader(`{"sessionId":"s1","message":"안녕"}`))
	req.Header.Set("Content-Type", "application/json")
	chatRouter(chat).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if env := decode(t, rec); env.Message != service.NoticeSessionBusy {
		t.Errorf("message = %q", env.Message)
	}
}

func TestChatSessionEndpoints(t *testing.T) {
	r := chatRouter(&fakeChat{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start without body status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/sessions/missing/messages", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/chat/sessions/s1", bytes.NewBufferString(`{"title":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/summary", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty summary status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/sessions/s1/export", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("export status = %d", rec.Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	users := &fakeUsers{profile: &model.UserProfile{ID: "u1", Name: "홍길동", Email: "hong@example.com"}}
	h := NewUserHandler(users)
	r := gin.New()
	r.POST("/users/register", h.Register)
	r.POST("/users/login", h.Login)
	authed := r.Group("/users", withUser(users.profile))
	authed.PUT("/me", h.UpdateProfile)
	authed.POST("/logout", h.Logout)

	post := func(path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec
	}

	if rec := post("/users/register", `{"name":"김철수","email":"taken@example.com","password":"secret1"}`); rec.Code != http.StatusConflict {
		t.Errorf("duplicate email status = %d", rec.Code)
	} else if env := decode(t, rec); env.Message != "이미 사용 중인 이메일입니다." {
		t.Errorf("duplicate email message = %q", env.Message)
	}

	if rec := post("/users/register", `{"name":"김철수","email":"kim@example.com","password":"123"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d", rec.Code)
	}

	if rec := post("/users/login", `{"email":"hong@example.com","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", rec.Code)
	}

	rec := post("/users/login", `{"email":"hong@example.com","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var login struct {
		User         model.UserProfile `json:"user"`
		Token        string            `json:"token"`
		RefreshToken string            `json:"refreshToken"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &login); err != nil {
		t.Fatal(err)
	}
	if login.User.ID != "u1" || login.Token != "access" || login.RefreshToken != "refresh" {
		t.Errorf("login data = %+v", login)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/users/me", strings.NewReader(`{"stress_level":150}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out of range update status = %d", rec.Code)
	}

	if rec := post("/users/logout", ``); rec.Code != http.StatusOK {
		t.Errorf("logout status = %d", rec.Code)
	}
	if !users.revoked["access-token"] {
		t.Error("logout did not revoke the context token")
	}
}

func TestRefreshTokenRejected(t *testing.T) {
	r := gin.New()
	r.POST("/auth/refreshToken", NewAuthHandler(&fakeUsers{}).RefreshToken)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/refreshToken", strings.NewReader(`{"refreshToken":"old"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

type fakeCompletion struct {
	service.CompletionService
	sent []string
}

func (f *fakeCompletion) StartConversation(ctx context.Context) (string, string, error) {
	return "session_1_abc", service.Greeting, nil
}

func (f *fakeCompletion) SendMessage(ctx context.Context, token, text, systemPrompt string) (*service.CompletionReply, error) {
	f.sent = append(f.sent, text)
	return &service.CompletionReply{Reply: "네"}, nil
}

func (f *fakeCompletion) History(ctx context.Context, token string) ([]model.CompletionTurn, error) {
	return nil, repository.ErrConversationNotFound
}

func TestCompletionEndpoints(t *testing.T) {
	completion := &fakeCompletion{}
	h := NewCompletionHandler(completion)
	r := gin.New()
	r.POST("/completion/start", h.Start)
	r.POST("/completion/send", h.Send)
	r.GET("/completion/history/:token", h.History)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/completion/start", nil))
	var started struct {
		SessionToken string `json:"sessionToken"`
		Message      string `json:"message"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &started); err != nil || started.SessionToken == "" || started.Message != service.Greeting {
		t.Errorf("start data = %+v, err %v", started, err)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/completion/send", strings.NewReader(`{"message":"   ","sessionToken":"t"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || len(completion.sent) != 0 {
		t.Errorf("blank message status = %d, sent %v", rec.Code, completion.sent)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/completion/history/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown history status = %d", rec.Code)
	}
}

type fakeLocation struct {
	radius int
}

func (f *fakeLocation) Address(ctx context.Context, lat, lng float64) (*maps.Address, error) {
	return &maps.Address{Address: "서울특별시 중구 명동"}, nil
}

func (f *fakeLocation) SearchAddresses(ctx context.Context, query string) ([]maps.AddressCandidate, error) {
	return nil, &service.InputError{Message: "검색어는 2자 이상이어야 합니다."}
}

func (f *fakeLocation) NearbyFacilities(ctx context.Context, lat, lng float64, radius int) (*maps.FacilitySearch, error) {
	f.radius = radius
	return &maps.FacilitySearch{}, nil
}

func TestLocationEndpoints(t *testing.T) {
	loc := &fakeLocation{}
	h := NewLocationHandler(loc)
	r := gin.New()
	r.GET("/location/address", h.Address)
	r.GET("/location/search", h.Search)
	r.GET("/location/nearby-facilities", h.NearbyFacilities)

	get := func(path string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	if code := get("/location/address?lat=abc&lng=126.9"); code != http.StatusBadRequest {
		t.Errorf("bad lat status = %d", code)
	}
	if code := get("/location/address?lat=37.56&lng=126.98"); code != http.StatusOK {
		t.Errorf("address status = %d", code)
	}
	if code := get("/location/search?query=a"); code != http.StatusBadRequest {
		t.Errorf("short query status = %d", code)
	}
	if code := get("/location/nearby-facilities?lat=37.56&lng=126.98"); code != http.StatusOK || loc.radius != 5000 {
		t.Errorf("nearby status = %d radius = %d", code, loc.radius)
	}
}

type fakeAdmin struct {
	start, end *time.Time
	page, size int
}

func (f *fakeAdmin) ListRiskAlerts(ctx context.Context, userID string, start, end *time.Time, page, size int) (*service.RiskAlertListResponse, error) {
	f.start, f.end, f.page, f.size = start, end, page, size
	return &service.RiskAlertListResponse{Number: page, Size: size}, nil
}

func TestListRiskAlerts(t *testing.T) {
	admin := &fakeAdmin{}
	r := gin.New()
	r.GET("/admin/risk-alerts", NewAdminHandler(admin).ListRiskAlerts)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/risk-alerts?start_date=2024/01/01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/risk-alerts?page=2&start_date=2024-01-01&end_date=2024-01-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if admin.page != 2 || admin.size != 20 {
		t.Errorf("page/size = %d/%d", admin.page, admin.size)
	}
	if admin.end == nil || admin.end.Day() != 31 || admin.end.Hour() != 23 {
		t.Errorf("end = %v, want end of 2024-01-31", admin.end)
	}
}

func TestWebSocketTurns(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 1)
	users := &fakeUsers{profile: &model.UserProfile{ID: "u1"}}
	chat := &fakeChat{result: &service.TurnResult{Session: &model.ChatSession{ID: "s-ws"}}}
	h := NewChatHandler(chat, fakeSummary{}, users, jwtManager)

	r := gin.New()
	r.GET("/chat/ws/:token", h.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws/"

	refresh, err := jwtManager.GenerateRefreshToken("u1", "hong@example.com", "USER")
	if err != nil {
		t.Fatal(err)
	}
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL+refresh, nil); err == nil {
		t.Fatal("refresh token must not open a socket")
	} else if resp != nil && resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("refresh token status = %d", resp.StatusCode)
	}

	access, err := jwtManager.GenerateToken("u1", "hong@example.com", "USER")
	if err != nil {
		t.Fatal(err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+access, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() wsFrame {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		return frame
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if f := read(); f.Type != "error" || f.Code != http.StatusBadRequest {
		t.Errorf("bad frame reply = %+v", f)
	}

	for _, msg := range []string{`{"message":"안녕"}`, `{"message":"그리고"}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatal(err)
		}
		if f := read(); f.Type != "turn" || f.Code != http.StatusOK {
			t.Errorf("turn reply = %+v", f)
		}
	}
	if len(chat.requests) != 2 {
		t.Fatalf("requests = %d", len(chat.requests))
	}
	if chat.requests[0].SessionID != "" || chat.requests[1].SessionID != "s-ws" {
		t.Errorf("session ids = %q, %q; second turn should reuse the connection session",
			chat.requests[0].SessionID, chat.requests[1].SessionID)
	}
}
