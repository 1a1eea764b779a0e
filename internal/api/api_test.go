package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"campus-support/backend/ai"
	"campus-support/backend/internal/models"
	"campus-support/backend/internal/repository"
	"campus-support/backend/internal/service"
	"campus-support/backend/internal/testdb"
	apperrors "campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/jwt"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	configured bool
	err        error
	// before runs inside Generate, after the user turn is stored
	before   func()
	requests []ai.GenerateRequest
}

func (s *stubOracle) Configured() bool { return s.configured }

func (s *stubOracle) Generate(_ context.Context, req ai.GenerateRequest) (*ai.Generation, error) {
	s.requests = append(s.requests, req)
	if s.before != nil {
		s.before()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Generation{
		Reply:      "You can reset it from the login page.",
		Intent:     "account_help",
		Confidence: 0.9,
	}, nil
}

type testServer struct {
	engine *gin.Engine
	store  *repository.Store
	jwt    *jwt.Service
	oracle *stubOracle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	store := repository.NewStore(testdb.New(t))
	oracle := &stubOracle{configured: true}
	jwtSvc := jwt.NewService("test-secret", "campus-support", time.Hour)

	faqs := service.NewFAQService(store, nil, log)
	conversations := service.NewConversationService(store)
	assistant := service.NewAssistantService(conversations, faqs, oracle, service.AssistantConfig{}, nil, log)
	escalations := service.NewEscalationService(store, nil, service.EscalationConfig{}, nil, log)
	t.Cleanup(escalations.Wait)
	tickets := service.NewTicketService(store, log)

	engine := gin.New()
	engine.Use(logger.Middleware(log))
	engine.Use(apperrors.ErrorHandler())
	engine.Use(middleware.Authenticate(jwtSvc, log))

	v1 := engine.Group("/api/v1")
	NewChatHandler(assistant, conversations).RegisterRoutes(v1)
	NewFAQHandler(faqs).RegisterRoutes(v1)
	NewEscalationHandler(escalations).RegisterRoutes(v1)
	NewTicketHandler(tickets).RegisterRoutes(v1)

	return &testServer{engine: engine, store: store, jwt: jwtSvc, oracle: oracle}
}

func (s *testServer) token(t *testing.T, userID string, role jwt.Role) string {
	t.Helper()
	token, err := s.jwt.GenerateToken(userID, userID+"@school.test", role)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestChatScenario(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "How do I reset my password?"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.NotEmpty(t, body["message"])
	assert.Equal(t, "account_help", body["intent"])
	assert.Equal(t, false, body["requires_escalation"])

	w, body = s.do(t, http.MethodGet, "/api/v1/chat/sessions/"+sessionID+"/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])
	messages := body["messages"].([]any)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
}

func TestChatErrors(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "  "}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(body))

	s.oracle.err = ai.ErrUnavailable
	w, body = s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "hello", "session_id": "s-1"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "s-1", body["session_id"])
	assert.Equal(t, service.Apology, body["message"])
	assert.Equal(t, true, body["retryable"])
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", errorCode(body))

	s.oracle.err = context.DeadlineExceeded
	w, body = s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "hello", "session_id": "s-1"}, "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "UPSTREAM_TIMEOUT", errorCode(body))

	s.oracle.configured = false
	w, body = s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "hello"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", errorCode(body))
	assert.Nil(t, body["session_id"])
}

func TestChatForwardsContextAndCaller(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "parent-7", jwt.RoleParent)

	w, _ := s.do(t, http.MethodPost, "/api/v1/chat", gin.H{
		"message": "Why was I charged twice?",
		"context": gin.H{"page": "billing"},
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, s.oracle.requests, 1)
	req := s.oracle.requests[0]
	assert.Equal(t, map[string]any{"page": "billing"}, req.Context)
	require.NotNil(t, req.Caller)
	assert.Equal(t, "parent-7", req.Caller.ID)
	assert.Equal(t, "parent-7@school.test", req.Caller.Email)
	assert.Equal(t, "parent", req.Caller.Role)
}

func TestChatStorageFailureIsNotRetryable(t *testing.T) {
	s := newTestServer(t)
	s.oracle.before = func() {
		require.NoError(t, s.store.DB().Exec("DROP TABLE chat_messages").Error)
	}

	w, body := s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "hello", "session_id": "s-2"}, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(body))
	assert.Nil(t, body["retryable"])
	assert.NotEqual(t, service.Apology, body["message"])
}

func TestSessionMessagesOwnership(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "student-1", jwt.RoleStudent)

	w, _ := s.do(t, http.MethodPost, "/api/v1/chat", gin.H{"message": "hi", "session_id": "mine"}, owner)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/chat/sessions/mine/messages", nil, s.token(t, "student-2", jwt.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/chat/sessions/mine/messages", nil, s.token(t, "agent", jwt.RoleSupport))
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/chat/sessions/unknown/messages", nil, owner)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body := s.do(t, http.MethodGet, "/api/v1/chat/sessions/mine/messages", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestFAQSearchScenario(t *testing.T) {
	s := newTestServer(t)
	fixtures := []models.FAQ{
		{Category: "technical", Question: "How do I reset my password?", Answer: "Use the reset link.", UsageCount: 5, HelpfulCount: 8, NotHelpfulCount: 2, Active: true},
		{Category: "technical", Question: "Why is the video player blank?", Answer: "Update your browser.", Active: true},
		{Category: "technical", Question: "How do I change my email?", Answer: "Open profile settings.", Keywords: []string{"account"}, Active: true},
	}
	for i := range fixtures {
		require.NoError(t, s.store.DB().Create(&fixtures[i]).Error)
	}

	w, body := s.do(t, http.MethodGet, "/api/v1/faq/search?q=password&category=technical", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "password", body["query"])
	top := body["faqs"].([]any)[0].(map[string]any)
	assert.EqualValues(t, fixtures[0].ID, top["id"])
	assert.EqualValues(t, 6, top["usage_count"])

	stored, err := s.store.FAQs.Get(context.Background(), fixtures[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.UsageCount)

	w, _ = s.do(t, http.MethodGet, "/api/v1/faq/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/v1/faq/categories", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"technical"}, body["categories"])

	w, body = s.do(t, http.MethodGet, "/api/v1/faq?category=technical", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["count"])
}

func TestFAQFeedback(t *testing.T) {
	s := newTestServer(t)
	faq := models.FAQ{Category: "general", Question: "q", Answer: "a", Active: true}
	require.NoError(t, s.store.DB().Create(&faq).Error)

	w, body := s.do(t, http.MethodPost, "/api/v1/faq/feedback", gin.H{"faqId": faq.ID, "helpful": false}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/faq/feedback", gin.H{"faqId": faq.ID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodPost, "/api/v1/faq/feedback", gin.H{"faqId": 999, "helpful": true}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	stored, err := s.store.FAQs.Get(context.Background(), faq.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.NotHelpfulCount)
	assert.Zero(t, stored.HelpfulCount)
}

func TestEscalateScenario(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/api/v1/escalate", gin.H{
		"subject":     "Cannot access course",
		"description": "Video won't load",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, "open", ticket["status"])
	assert.Regexp(t, `^TKT-\d{8}-[A-Z2-7]{8}$`, ticket["ticket_number"])

	var system int64
	require.NoError(t, s.store.DB().Model(&models.TicketMessage{}).Where("is_system = ?", true).Count(&system).Error)
	assert.Zero(t, system)

	w, body = s.do(t, http.MethodPost, "/api/v1/escalate", gin.H{
		"subject":     "Cannot access course",
		"description": "Video won't load",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, ticket["ticket_number"], body["ticket"].(map[string]any)["ticket_number"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/escalate", gin.H{"subject": "only subject"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTicketFlow(t *testing.T) {
	s := newTestServer(t)
	student := s.token(t, "student-1", jwt.RoleStudent)
	stranger := s.token(t, "student-2", jwt.RoleStudent)
	agent := s.token(t, "agent-1", jwt.RoleSupport)

	w, body := s.do(t, http.MethodPost, "/api/v1/escalate", gin.H{
		"subject": "Locked out", "description": "Too many attempts", "priority": "high",
	}, student)
	require.Equal(t, http.StatusCreated, w.Code)
	id := int(body["ticket"].(map[string]any)["id"].(float64))
	path := "/api/v1/tickets/" + strconv.Itoa(id)

	w, _ = s.do(t, http.MethodGet, "/api/v1/tickets", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = s.do(t, http.MethodGet, "/api/v1/tickets", nil, student)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])
	w, body = s.do(t, http.MethodGet, "/api/v1/tickets", nil, stranger)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["total"])

	w, _ = s.do(t, http.MethodGet, path, nil, stranger)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, http.MethodPost, path+"/reply", gin.H{"message": "I'm on it", "is_staff": true}, student)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, http.MethodPost, path+"/reply", gin.H{"message": "I'm on it", "is_staff": true}, agent)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["message"].(map[string]any)["is_staff"])

	w, body = s.do(t, http.MethodGet, path, nil, student)
	require.Equal(t, http.StatusOK, w.Code)
	got := body["ticket"].(map[string]any)
	assert.Equal(t, "in_progress", got["status"])
	assert.NotNil(t, got["first_response_at"])

	w, body = s.do(t, http.MethodPost, path+"/attachments", gin.H{
		"file_name": "screen.png", "file_url": "https://files.school.test/screen.png", "size_bytes": 1024,
	}, student)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "screen.png", body["attachment"].(map[string]any)["file_name"])

	w, _ = s.do(t, http.MethodPatch, path+"/status", gin.H{"status": "closed"}, student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(t, http.MethodPatch, path+"/status", gin.H{"status": "closed"}, agent)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "closed", body["ticket"].(map[string]any)["status"])

	w, body = s.do(t, http.MethodPost, path+"/reply", gin.H{"message": "one more thing"}, student)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(body))

	w, _ = s.do(t, http.MethodPost, "/api/v1/tickets/999/reply", gin.H{"message": "hi"}, agent)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/tickets/abc", nil, agent)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActorFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.True(t, actorFrom(c).IsGuest())

	c.Set(middleware.ClaimsKey, &jwt.Claims{UserID: "u1", Email: "u1@school.test", Role: jwt.RoleAdmin})
	actor := actorFrom(c)
	assert.Equal(t, "u1", actor.UserID)
	assert.Equal(t, "admin", actor.Role)
	assert.True(t, actor.Staff)
}
