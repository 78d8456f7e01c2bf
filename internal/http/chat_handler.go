package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mentor-chat/internal/domain"
	"mentor-chat/internal/service"
)

// ChatHandler expone el ciclo de conversación y las operaciones de sesión
// sobre HTTP. Es una fachada fina: toda la lógica vive en ChatService.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chat *service.ChatService) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat}
}

type sendRequest struct {
	Text string                 `json:"text"`
	File *domain.FileAttachment `json:"file"`
}

// SendMessage maneja POST /chat: ejecuta el ciclo completo y responde con el
// par final usuario/modelo (el turno del modelo puede ser un turno de error).
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	// Entrada en blanco sin adjunto: no-op en el servicio, así que no hay
	// par nuevo que devolver ni intercambio creado.
	if strings.TrimSpace(req.Text) == "" && req.File == nil {
		c.JSON(http.StatusOK, gin.H{
			"session_id": h.chat.ActiveID(),
			"messages":   []domain.Message{},
		})
		return
	}

	err := h.chat.Send(c.Request.Context(), req.Text, req.File)
	if errors.Is(err, service.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": "ka një dërgim në progres"})
		return
	}

	status := http.StatusCreated
	switch {
	case errors.Is(err, service.ErrEmptyOutgoing), errors.Is(err, service.ErrHistoryNotUserTerminated):
		status = http.StatusBadRequest
	case err != nil:
		status = http.StatusBadGateway
	}

	msgs := h.chat.Transcript()
	var pair []domain.Message
	if len(msgs) >= 2 {
		pair = msgs[len(msgs)-2:]
	}
	c.JSON(status, gin.H{
		"session_id": h.chat.ActiveID(),
		"messages":   pair,
	})
}

// StreamMessage maneja POST /chat/stream: mismo ciclo, pero escribe los
// deltas como frames JSON separados por línea en blanco a medida que llegan,
// el mismo framing que habla el backend.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid stream request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.Header().Set("X-Content-Type-Options", "nosniff")

	// El observador corre dentro del bucle de Send, en esta misma goroutine,
	// así que escribir al response aquí es seguro.
	var sent string
	var sourcesSent bool
	cancel := h.chat.Subscribe(func(msgs []domain.Message) {
		if len(msgs) == 0 {
			return
		}
		last := msgs[len(msgs)-1]
		if last.Role != domain.RoleModel || last.IsError {
			return
		}
		if len(last.Text) < len(sent) || last.Text[:len(sent)] != sent {
			return
		}
		delta := last.Text[len(sent):]
		// Las fuentes llegan en el snapshot final, cuyo texto ya no crece;
		// ese frame se emite igual para que el consumidor reciba las citas.
		if delta == "" && (len(last.Sources) == 0 || sourcesSent) {
			return
		}
		sent = last.Text
		if len(last.Sources) > 0 {
			sourcesSent = true
		}
		frame, err := json.Marshal(gin.H{"text": delta, "sources": last.Sources})
		if err != nil {
			return
		}
		c.Writer.Write(frame)
		c.Writer.Write([]byte("\n\n"))
		c.Writer.Flush()
	})
	defer cancel()

	err := h.chat.Send(c.Request.Context(), req.Text, req.File)
	if errors.Is(err, service.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": "ka një dërgim në progres"})
		return
	}
	if err != nil {
		// El turno de error ya quedó en el transcript; se emite como frame
		// final para que el consumidor lo muestre.
		msgs := h.chat.Transcript()
		if len(msgs) > 0 && msgs[len(msgs)-1].IsError {
			if frame, mErr := json.Marshal(gin.H{"text": msgs[len(msgs)-1].Text, "error": true}); mErr == nil {
				c.Writer.Write(frame)
				c.Writer.Write([]byte("\n\n"))
				c.Writer.Flush()
			}
		}
	}
}

// ListSessions maneja GET /sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions":  h.chat.Sessions(),
		"active_id": h.chat.ActiveID(),
	})
}

// GetTranscript maneja GET /transcript.
func (h *ChatHandler) GetTranscript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"session_id": h.chat.ActiveID(),
		"messages":   h.chat.Transcript(),
		"loading":    h.chat.Loading(),
	})
}

// NewChat maneja POST /sessions/new: desactiva la sesión actual; la próxima
// sesión se crea recién en el primer envío.
func (h *ChatHandler) NewChat(c *gin.Context) {
	if err := h.chat.NewChat(c.Request.Context()); err != nil {
		h.respondSessionError(c, err, "could not start new chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_id": ""})
}

// ActivateSession maneja POST /sessions/:id/activate.
func (h *ChatHandler) ActivateSession(c *gin.Context) {
	if err := h.chat.SetActive(c.Request.Context(), c.Param("id")); err != nil {
		h.respondSessionError(c, err, "could not activate session")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active_id": h.chat.ActiveID(),
		"messages":  h.chat.Transcript(),
	})
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// RenameSession maneja PUT /sessions/:id/title.
func (h *ChatHandler) RenameSession(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.chat.Rename(c.Request.Context(), c.Param("id"), req.Title); err != nil {
		h.respondSessionError(c, err, "could not rename session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": h.chat.Sessions()})
}

// ClearSession maneja DELETE /sessions/:id/messages.
func (h *ChatHandler) ClearSession(c *gin.Context) {
	if err := h.chat.ClearMessages(c.Request.Context(), c.Param("id")); err != nil {
		h.respondSessionError(c, err, "could not clear session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": h.chat.Sessions()})
}

func (h *ChatHandler) respondSessionError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "ka një dërgim në progres"})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	default:
		h.logger.Error(fallback, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
