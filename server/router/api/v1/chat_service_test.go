package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/ragdesk/chat"
)

type stubCompletion struct {
	content string
	err     error
}

func (s *stubCompletion) Send(_ context.Context, _ *chat.CompletionRequest) (*chat.CompletionResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &chat.CompletionResult{Content: s.content}, nil
}

type stubConversations struct{}

func (stubConversations) Create(context.Context, *chat.CreateConversation) (string, error) {
	return "conv-1", nil
}
func (stubConversations) AppendMessage(context.Context, string, *chat.Message) error { return nil }
func (stubConversations) UpdateAutoTitle(context.Context, string, string) error      { return nil }

func newTestChatService(t *testing.T, completion chat.CompletionService) (*ChatService, *chat.Registry) {
	t.Helper()
	registry := chat.NewRegistry(nil, time.Hour)
	t.Cleanup(registry.Shutdown)

	return &ChatService{
		Registry:   registry,
		Dispatcher: chat.NewDispatcher(completion, stubConversations{}, nil),
	}, registry
}

func doRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestChatService_GetSession(t *testing.T) {
	svc, _ := newTestChatService(t, &stubCompletion{})

	rec := doRequest(t, svc.GetSession, http.MethodGet, "/api/v1/chat/tok", "", map[string]string{"token": "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var state sessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if state.Mode != chat.ModeGeneral {
		t.Errorf("fresh session mode = %q, want general", state.Mode)
	}
	if state.ConversationID != "" {
		t.Errorf("fresh session has conversation id %q", state.ConversationID)
	}
}

func TestChatService_SetMode(t *testing.T) {
	svc, _ := newTestChatService(t, &stubCompletion{})

	t.Run("grounded without documents is rejected", func(t *testing.T) {
		rec := doRequest(t, svc.SetMode, http.MethodPut, "/api/v1/chat/tok/mode",
			`{"mode":"grounded"}`, map[string]string{"token": "tok"})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("unknown mode is rejected", func(t *testing.T) {
		rec := doRequest(t, svc.SetMode, http.MethodPut, "/api/v1/chat/tok/mode",
			`{"mode":"hybrid"}`, map[string]string{"token": "tok"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestChatService_SendMessage(t *testing.T) {
	svc, registry := newTestChatService(t, &stubCompletion{content: "hello back"})

	rec := doRequest(t, svc.SendMessage, http.MethodPost, "/api/v1/chat/tok/messages",
		`{"message":"hello"}`, map[string]string{"token": "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.AssistantMessage.Content != "hello back" {
		t.Errorf("assistant content = %q", resp.AssistantMessage.Content)
	}
	if resp.ConversationID != "conv-1" {
		t.Errorf("conversation id = %q, want conv-1", resp.ConversationID)
	}

	sess, ok := registry.Get("tok")
	if !ok {
		t.Fatal("session missing from registry")
	}
	if got := len(sess.ActiveMessages()); got != 2 {
		t.Errorf("session has %d messages, want 2", got)
	}
}

func TestChatService_SendMessage_EmptyBody(t *testing.T) {
	svc, _ := newTestChatService(t, &stubCompletion{})

	rec := doRequest(t, svc.SendMessage, http.MethodPost, "/api/v1/chat/tok/messages",
		`{"message":""}`, map[string]string{"token": "tok"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatService_NewConversation(t *testing.T) {
	svc, registry := newTestChatService(t, &stubCompletion{content: "ok"})

	doRequest(t, svc.SendMessage, http.MethodPost, "/api/v1/chat/tok/messages",
		`{"message":"hi"}`, map[string]string{"token": "tok"})

	rec := doRequest(t, svc.NewConversation, http.MethodPost, "/api/v1/chat/tok/new",
		"", map[string]string{"token": "tok"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	sess, _ := registry.Get("tok")
	if got := len(sess.ActiveMessages()); got != 0 {
		t.Errorf("messages after new conversation = %d, want 0", got)
	}
	if sess.ConversationID() != "" {
		t.Errorf("conversation id survived new conversation")
	}
}
