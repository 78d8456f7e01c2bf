package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mentor-chat/internal/domain"
	"mentor-chat/internal/llm"
	"mentor-chat/internal/repository"
	"mentor-chat/internal/service"
)

func newTestRouter(t *testing.T, client llm.StreamClient) (*gin.Engine, *service.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewKVSessionRepository(repository.NewMemoryKV())
	svc, err := service.NewChatService(context.Background(), repo, client, zap.NewNop())
	if err != nil {
		t.Fatalf("new chat service: %v", err)
	}
	handler := NewChatHandler(zap.NewNop(), svc)
	return NewRouter(zap.NewNop(), handler), svc
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatHandler_SendMessage(t *testing.T) {
	client := &llm.MockStreamClient{Stream: "{\"text\":\"Pershend\"}\n\n{\"text\":\"etje!\"}\n\n"}
	router, _ := newTestRouter(t, client)

	w := postJSON(t, router, "/chat", gin.H{"text": "Hello"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string           `json:"session_id"`
		Messages  []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected a message pair, got %#v", resp.Messages)
	}
	if resp.Messages[1].Text != "Pershendetje!" {
		t.Fatalf("expected assembled model text, got %q", resp.Messages[1].Text)
	}
}

func TestChatHandler_SendMessage_InvalidBody(t *testing.T) {
	router, _ := newTestRouter(t, &llm.MockStreamClient{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestChatHandler_SendMessage_TransportError(t *testing.T) {
	client := &llm.MockStreamClient{Err: &llm.APIError{Status: 500, Message: "Gabim i brendshëm në server"}}
	router, _ := newTestRouter(t, client)

	w := postJSON(t, router, "/chat", gin.H{"text": "Hello"})

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 || !resp.Messages[1].IsError {
		t.Fatalf("expected error turn in response, got %#v", resp.Messages)
	}
	if resp.Messages[1].Text != "Gabim i brendshëm në server" {
		t.Fatalf("expected backend message verbatim, got %q", resp.Messages[1].Text)
	}
}

func TestChatHandler_StreamMessage(t *testing.T) {
	client := &llm.MockStreamClient{Stream: "{\"text\":\"Pershend\"}\n\n{\"text\":\"etje!\"}\n\n"}
	router, _ := newTestRouter(t, client)

	w := postJSON(t, router, "/chat/stream", gin.H{"text": "Hello"})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var texts []string
	for _, frame := range strings.Split(w.Body.String(), "\n\n") {
		if strings.TrimSpace(frame) == "" {
			continue
		}
		var chunk struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(frame), &chunk); err != nil {
			t.Fatalf("invalid frame %q: %v", frame, err)
		}
		texts = append(texts, chunk.Text)
	}
	if len(texts) != 2 || texts[0] != "Pershend" || texts[1] != "etje!" {
		t.Fatalf("unexpected streamed deltas: %#v", texts)
	}
}

func TestChatHandler_StreamMessage_FinalFrameCarriesSources(t *testing.T) {
	client := &llm.MockStreamClient{Stream: "{\"text\":\"Pershend\"}\n\n{\"text\":\"etje!\",\"sources\":[{\"title\":\"Field (2018)\",\"uri\":\"https://example.org/field\"}]}\n\n"}
	router, _ := newTestRouter(t, client)

	w := postJSON(t, router, "/chat/stream", gin.H{"text": "Hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	type frame struct {
		Text    string          `json:"text"`
		Sources []domain.Source `json:"sources"`
	}
	var frames []frame
	for _, raw := range strings.Split(w.Body.String(), "\n\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var f frame
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			t.Fatalf("invalid frame %q: %v", raw, err)
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		t.Fatal("no frames written")
	}

	// Las citas viajan en el frame final, como en el stream del backend.
	last := frames[len(frames)-1]
	if len(last.Sources) != 1 || last.Sources[0].Title != "Field (2018)" {
		t.Fatalf("expected sources on the final frame, got %#v", frames)
	}
	var full strings.Builder
	for _, f := range frames {
		full.WriteString(f.Text)
	}
	if full.String() != "Pershendetje!" {
		t.Fatalf("expected reassembled text %q, got %q", "Pershendetje!", full.String())
	}
}

func TestChatHandler_SendMessage_BlankIsNoop(t *testing.T) {
	client := &llm.MockStreamClient{Stream: "{\"text\":\"ok\"}\n\n"}
	router, _ := newTestRouter(t, client)

	if w := postJSON(t, router, "/chat", gin.H{"text": "primera"}); w.Code != http.StatusCreated {
		t.Fatalf("seed send: %d", w.Code)
	}

	// Un envío en blanco no crea intercambio: no debe presentarse el par
	// anterior como recién creado.
	w := postJSON(t, router, "/chat", gin.H{"text": "   \t "})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for blank send, got %d", w.Code)
	}
	var resp struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 0 {
		t.Fatalf("blank send must not return a message pair, got %#v", resp.Messages)
	}
	if client.Calls != 1 {
		t.Fatalf("expected no extra backend call, got %d", client.Calls)
	}
}

func TestChatHandler_SessionLifecycle(t *testing.T) {
	client := &llm.MockStreamClient{Stream: "{\"text\":\"ok\"}\n\n"}
	router, svc := newTestRouter(t, client)

	if w := postJSON(t, router, "/chat", gin.H{"text": "primera"}); w.Code != http.StatusCreated {
		t.Fatalf("send failed: %d", w.Code)
	}
	id := svc.ActiveID()

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list sessions: %d", w.Code)
	}
	var listResp struct {
		Sessions []domain.Session `json:"sessions"`
		ActiveID string           `json:"active_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.Sessions) != 1 || listResp.ActiveID != id {
		t.Fatalf("unexpected session list: %#v", listResp)
	}

	raw, _ := json.Marshal(gin.H{"title": "Alpha de Cronbach"})
	req = httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/title", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("rename: %d", w.Code)
	}
	if svc.Sessions()[0].Title != "Alpha de Cronbach" {
		t.Fatalf("rename not applied: %#v", svc.Sessions())
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+id+"/messages", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: %d", w.Code)
	}
	if len(svc.Sessions()[0].Messages) != 0 {
		t.Fatal("clear not applied")
	}

	req = httptest.NewRequest(http.MethodPut, "/sessions/no-such/title", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
}
