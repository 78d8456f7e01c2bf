package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"mentor-chat/internal/domain"
)

// Claves bajo las que se guarda el estado del cliente en el KVStore.
const (
	chatHistoryKey  = "spss_talk_chat_history"
	lastActiveIDKey = "spss_last_active_chat_id"
)

// SessionRepository es el almacén durable de sesiones: lista ordenada
// completa, sobrescritura total e idempotente al guardar.
type SessionRepository interface {
	GetAll(ctx context.Context) ([]domain.Session, error)
	SaveAll(ctx context.Context, sessions []domain.Session) error
	GetLastActiveID(ctx context.Context) (string, error)
	SetLastActiveID(ctx context.Context, id string) error
	ClearLastActiveID(ctx context.Context) error
}

// KVSessionRepository serializa la lista completa de sesiones como un único
// valor JSON en el KVStore subyacente.
type KVSessionRepository struct {
	kv KVStore
}

func NewKVSessionRepository(kv KVStore) *KVSessionRepository {
	return &KVSessionRepository{kv: kv}
}

// GetAll devuelve la lista de sesiones; un almacén vacío o ausente produce
// una lista vacía, nunca un error.
func (r *KVSessionRepository) GetAll(ctx context.Context) ([]domain.Session, error) {
	raw, ok, err := r.kv.Get(ctx, chatHistoryKey)
	if err != nil {
		return nil, fmt.Errorf("get chat history: %w", err)
	}
	if !ok || raw == "" {
		return []domain.Session{}, nil
	}
	var sessions []domain.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, fmt.Errorf("unmarshal chat history: %w", err)
	}
	return sessions, nil
}

func (r *KVSessionRepository) SaveAll(ctx context.Context, sessions []domain.Session) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("marshal chat history: %w", err)
	}
	if err := r.kv.Set(ctx, chatHistoryKey, string(raw)); err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}

// GetLastActiveID devuelve el puntero a la última sesión activa, o cadena
// vacía si no hay.
func (r *KVSessionRepository) GetLastActiveID(ctx context.Context) (string, error) {
	id, _, err := r.kv.Get(ctx, lastActiveIDKey)
	if err != nil {
		return "", fmt.Errorf("get last active id: %w", err)
	}
	return id, nil
}

func (r *KVSessionRepository) SetLastActiveID(ctx context.Context, id string) error {
	return r.kv.Set(ctx, lastActiveIDKey, id)
}

func (r *KVSessionRepository) ClearLastActiveID(ctx context.Context) error {
	return r.kv.Delete(ctx, lastActiveIDKey)
}
