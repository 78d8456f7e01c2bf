package service

import (
	"errors"

	"mentor-chat/internal/domain"
)

var (
	ErrEmptyOutgoing            = errors.New("outgoing history is empty")
	ErrHistoryNotUserTerminated = errors.New("outgoing history must end with a user turn")
)

// MessageParts convierte texto y adjunto en las partes del request: primero
// el texto (si lo hay), después el adjunto inline (si lo hay).
func MessageParts(text string, file *domain.FileAttachment) []domain.Part {
	parts := make([]domain.Part, 0, 2)
	if text != "" {
		parts = append(parts, domain.Part{Text: text})
	}
	if file != nil {
		parts = append(parts, domain.Part{InlineData: &domain.InlineData{
			MimeType: file.MimeType,
			Data:     file.Data,
		}})
	}
	return parts
}

// SanitizeHistory reduce el log crudo de una sesión a la secuencia de
// contenidos legal para el backend: descarta turnos de error y placeholders
// sin contenido, y normaliza el resto con SanitizeContents.
func SanitizeHistory(history []domain.Message) []domain.Content {
	contents := make([]domain.Content, 0, len(history))
	for _, msg := range history {
		if msg.IsError || !msg.HasContent() {
			continue
		}
		contents = append(contents, domain.Content{
			Role:  msg.Role,
			Parts: MessageParts(msg.Text, msg.File),
		})
	}
	return SanitizeContents(contents)
}

// SanitizeContents normaliza una secuencia de contenidos: elimina registros
// sin partes, descarta los que preceden al primer turno de usuario y fusiona
// registros adyacentes del mismo rol (las partes previas quedan primero).
//
// Es pura y determinista, e idempotente: aplicarla sobre su propia salida
// devuelve la misma secuencia.
func SanitizeContents(contents []domain.Content) []domain.Content {
	out := make([]domain.Content, 0, len(contents))
	for _, c := range contents {
		if len(c.Parts) == 0 {
			continue
		}
		// Una conversación no puede abrir con un turno del modelo.
		if len(out) == 0 && c.Role != domain.RoleUser {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Role == c.Role {
			// Dos registros adyacentes del mismo rol (p.ej. tras eliminar un
			// turno de error intermedio): se fusionan en el registro previo.
			prev := &out[len(out)-1]
			merged := make([]domain.Part, 0, len(prev.Parts)+len(c.Parts))
			merged = append(merged, prev.Parts...)
			merged = append(merged, c.Parts...)
			prev.Parts = merged
			continue
		}
		out = append(out, domain.Content{Role: c.Role, Parts: c.Parts})
	}
	return out
}

// ValidateOutgoing verifica la regla terminal antes de contactar el backend:
// la secuencia no puede estar vacía y debe terminar en un turno de usuario.
func ValidateOutgoing(contents []domain.Content) error {
	if len(contents) == 0 {
		return ErrEmptyOutgoing
	}
	if contents[len(contents)-1].Role != domain.RoleUser {
		return ErrHistoryNotUserTerminated
	}
	return nil
}
