package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mentor-chat/internal/domain"
	"mentor-chat/internal/llm"
	"mentor-chat/internal/repository"
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrBusy                     = errors.New("a send is already in flight")
	ErrSessionNotFound          = errors.New("session not found")
)

// Mensajes visibles al usuario, en albanés (la lengua del producto).
const (
	errFallbackText     = "Ndodhi një gabim i panjohur. Ju lutem provoni përsëri."
	errEmptyMessageText = "Nuk mund të dërgohet një mesazh bosh."
)

// Observer recibe un snapshot completo del transcript tras cada mutación
// (incluido cada chunk recibido). Cualquier colaborador puede suscribirse:
// UI, logger, harness de test.
type Observer func(messages []domain.Message)

// ChatService orquesta el ciclo completo de envío/recepción y mantiene
// consistentes el transcript vivo y el almacén de sesiones. Mientras un envío
// está en vuelo la memoria es autoritativa; el almacén no se relee hasta que
// el turno termina.
type ChatService struct {
	repo   repository.SessionRepository
	client llm.StreamClient
	logger *zap.Logger

	mu         sync.Mutex
	sessions   []domain.Session
	activeID   string
	transcript []domain.Message
	loading    bool
	observers  map[int]Observer
	nextObsID  int

	// saveMu serializa las escrituras al almacén: el snapshot de la lista y
	// su SaveAll van juntos bajo este lock, así un guardado viejo nunca pisa
	// uno más nuevo (p.ej. un rename corriendo contra el final de un envío).
	saveMu sync.Mutex
}

// NewChatService carga el estado persistido y devuelve el servicio listo, o
// un error de inicialización con diagnóstico.
func NewChatService(ctx context.Context, repo repository.SessionRepository, client llm.StreamClient, logger *zap.Logger) (*ChatService, error) {
	if repo == nil || client == nil {
		return nil, ErrChatServiceNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sessions, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	s := &ChatService{
		repo:      repo,
		client:    client,
		logger:    logger,
		sessions:  sessions,
		observers: make(map[int]Observer),
	}

	lastID, err := repo.GetLastActiveID(ctx)
	if err != nil {
		logger.Warn("load last active session failed", zap.Error(err))
		return s, nil
	}
	for _, sess := range sessions {
		if sess.ID == lastID {
			s.activeID = sess.ID
			s.transcript = append([]domain.Message(nil), sess.Messages...)
			break
		}
	}
	return s, nil
}

// Subscribe registra un observador de snapshots del transcript y devuelve la
// función para darlo de baja.
func (s *ChatService) Subscribe(obs Observer) (cancel func()) {
	if obs == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = obs
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Loading indica si hay un envío en vuelo.
func (s *ChatService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ActiveID devuelve el id de la sesión activa, o cadena vacía si no hay.
func (s *ChatService) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Sessions devuelve una copia de la lista de sesiones en memoria.
func (s *ChatService) Sessions() []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Session(nil), s.sessions...)
}

// Transcript devuelve una copia del transcript vivo.
func (s *ChatService) Transcript() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.transcript...)
}

// NewChat desactiva la sesión actual sin crear nada: la sesión nueva se crea
// de forma perezosa en el primer envío. Rechazado mientras hay un envío en
// vuelo para no perder los deltas en pantalla.
func (s *ChatService) NewChat(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.activeID = ""
	s.transcript = nil
	snapshot := []domain.Message{}
	s.mu.Unlock()

	if err := s.repo.ClearLastActiveID(ctx); err != nil {
		s.logger.Warn("clear last active id failed", zap.Error(err))
	}
	s.notify(snapshot)
	return nil
}

// SetActive cambia la sesión activa y vuelca sus mensajes al transcript.
// Rechazado mientras hay un envío en vuelo.
func (s *ChatService) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	var found *domain.Session
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			found = &s.sessions[i]
			break
		}
	}
	if found == nil {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.activeID = found.ID
	s.transcript = append([]domain.Message(nil), found.Messages...)
	snapshot := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()

	if err := s.repo.SetLastActiveID(ctx, id); err != nil {
		s.logger.Warn("save last active id failed", zap.Error(err))
	}
	s.notify(snapshot)
	return nil
}

// Rename cambia el título de una sesión. Una vez editado por el usuario, el
// título nunca se regenera automáticamente.
func (s *ChatService) Rename(ctx context.Context, id, title string) error {
	s.mu.Lock()
	var ok bool
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Title = title
			ok = true
			break
		}
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return s.saveSessions(ctx)
}

// ClearMessages vacía el log de una sesión. Para la sesión activa se rechaza
// mientras hay un envío en vuelo.
func (s *ChatService) ClearMessages(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.loading && id == s.activeID {
		s.mu.Unlock()
		return ErrBusy
	}
	var ok bool
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions[i].Messages = []domain.Message{}
			ok = true
			break
		}
	}
	var snapshot []domain.Message
	if id == s.activeID {
		s.transcript = nil
		snapshot = []domain.Message{}
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if snapshot != nil {
		s.notify(snapshot)
	}
	return s.saveSessions(ctx)
}

// Send ejecuta un ciclo completo de envío: turno de usuario provisional,
// placeholder del modelo, historial saneado al backend, plegado de chunks con
// revelado progresivo y persistencia del resultado (éxito o turno de error).
//
// Entrada en blanco sin adjunto es un no-op silencioso. Un segundo Send con
// otro en vuelo devuelve ErrBusy sin contactar el backend. La cancelación del
// contexto abandona el envío sin escribir en el almacén.
func (s *ChatService) Send(ctx context.Context, text string, file *domain.FileAttachment) error {
	if strings.TrimSpace(text) == "" && file == nil {
		return nil
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true

	userMsg := domain.Message{
		ID:   uuid.NewString(),
		Role: domain.RoleUser,
		Text: text,
		File: file,
	}

	var createdID string
	if s.activeID == "" {
		sess := domain.Session{
			ID:       uuid.NewString(),
			Title:    domain.DeriveTitle(text),
			Messages: []domain.Message{},
		}
		s.sessions = append([]domain.Session{sess}, s.sessions...)
		s.activeID = sess.ID
		createdID = sess.ID
	}

	prior := append([]domain.Message(nil), s.transcript...)
	placeholder := domain.Message{
		ID:      uuid.NewString(),
		Role:    domain.RoleModel,
		Text:    "",
		Sources: []domain.Source{},
	}
	s.transcript = append(s.transcript, userMsg, placeholder)
	snapshot := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()

	if createdID != "" {
		if err := s.repo.SetLastActiveID(ctx, createdID); err != nil {
			s.logger.Warn("save last active id failed", zap.Error(err))
		}
	}
	s.notify(snapshot)

	err := s.exchange(ctx, prior, userMsg, placeholder.ID)

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	return err
}

// exchange cubre desde el saneado del historial hasta la persistencia final.
// El flag de carga lo administra Send.
func (s *ChatService) exchange(ctx context.Context, prior []domain.Message, userMsg domain.Message, placeholderID string) error {
	contents := append(SanitizeHistory(prior), domain.Content{
		Role:  domain.RoleUser,
		Parts: MessageParts(userMsg.Text, userMsg.File),
	})
	// Re-saneado: si el historial quedó terminado en usuario (p.ej. tras
	// eliminar un turno de error), el turno nuevo se fusiona con el previo.
	contents = SanitizeContents(contents)

	if err := ValidateOutgoing(contents); err != nil {
		s.logger.Warn("request validation failed", zap.Error(err))
		s.failPlaceholder(ctx, placeholderID, errEmptyMessageText)
		return err
	}

	stream, err := s.client.GenerateStream(ctx, contents)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Error("generate stream failed", zap.Error(err))
		s.failPlaceholder(ctx, placeholderID, userErrorText(err))
		return err
	}
	defer stream.Close()

	var full strings.Builder
	var last llm.Chunk
	dec := llm.NewDecoder(stream, s.logger)
	for {
		chunk, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("stream read failed", zap.Error(err))
			s.failPlaceholder(ctx, placeholderID, userErrorText(err))
			return err
		}
		full.WriteString(chunk.Text)
		last = chunk
		s.updatePlaceholder(placeholderID, full.String())
	}

	if ctx.Err() != nil {
		// Envío abandonado: nada de persistencia.
		return ctx.Err()
	}

	s.finalizePlaceholder(ctx, placeholderID, full.String(), last.Sources, userMsg.Text)
	return nil
}

// updatePlaceholder sobrescribe el texto del placeholder con el acumulado y
// emite un snapshot. Es una sobrescritura total, no un append: solo corre un
// bucle de decodificación por envío, así que no hay updates tardíos posibles.
func (s *ChatService) updatePlaceholder(placeholderID, text string) {
	s.mu.Lock()
	for i := range s.transcript {
		if s.transcript[i].ID == placeholderID {
			s.transcript[i].Text = text
			break
		}
	}
	snapshot := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()
	s.notify(snapshot)
}

// finalizePlaceholder fija texto y fuentes definitivas y persiste la sesión.
func (s *ChatService) finalizePlaceholder(ctx context.Context, placeholderID, text string, sources []domain.Source, userText string) {
	if sources == nil {
		sources = []domain.Source{}
	}
	s.mu.Lock()
	for i := range s.transcript {
		if s.transcript[i].ID == placeholderID {
			s.transcript[i].Text = text
			s.transcript[i].Sources = sources
			break
		}
	}
	snapshot := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()
	s.notify(snapshot)

	s.persistTranscript(ctx, userText, true)
}

// failPlaceholder convierte el placeholder en un turno de error y lo
// persiste: los errores son parte del historial, no estado transitorio.
func (s *ChatService) failPlaceholder(ctx context.Context, placeholderID, text string) {
	s.mu.Lock()
	for i := range s.transcript {
		if s.transcript[i].ID == placeholderID {
			s.transcript[i].Text = text
			s.transcript[i].IsError = true
			break
		}
	}
	snapshot := append([]domain.Message(nil), s.transcript...)
	s.mu.Unlock()
	s.notify(snapshot)

	s.persistTranscript(ctx, "", false)
}

// persistTranscript escribe el transcript completo en la sesión activa y
// guarda la lista entera. El título solo se deriva si la sesión no tenía
// mensajes guardados (primer intercambio completado).
func (s *ChatService) persistTranscript(ctx context.Context, userText string, updateTitle bool) {
	s.mu.Lock()
	final := append([]domain.Message(nil), s.transcript...)
	for i := range s.sessions {
		if s.sessions[i].ID == s.activeID {
			if updateTitle && len(s.sessions[i].Messages) == 0 && userText != "" {
				s.sessions[i].Title = domain.DeriveTitle(userText)
			}
			s.sessions[i].Messages = final
			break
		}
	}
	s.mu.Unlock()

	if err := s.saveSessions(ctx); err != nil {
		s.logger.Error("save sessions failed", zap.Error(err))
	}
}

// saveSessions copia la lista bajo el lock de estado y la escribe al almacén
// sosteniendo el lock de persistencia, para que los guardados lleguen en el
// mismo orden en que se tomaron los snapshots.
func (s *ChatService) saveSessions(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	sessions := append([]domain.Session(nil), s.sessions...)
	s.mu.Unlock()

	return s.repo.SaveAll(ctx, sessions)
}

func (s *ChatService) notify(snapshot []domain.Message) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()
	for _, obs := range observers {
		obs(snapshot)
	}
}

// userErrorText traduce un error de transporte al texto visible: el mensaje
// del backend tal cual cuando existe, o el fallback genérico.
func userErrorText(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return errFallbackText
}
