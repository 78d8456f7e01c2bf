package domain

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// FileAttachment es un adjunto binario codificado en base64.
type FileAttachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Source es una cita/referencia devuelta por el backend al final del stream.
type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// Message es un turno de la conversación. El orden dentro de la sesión es
// posicional; el ID solo sirve para reconciliación en la UI.
type Message struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Text    string          `json:"text"`
	File    *FileAttachment `json:"file,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
	Sources []Source        `json:"sources,omitempty"`
}

// HasContent indica si el mensaje aporta texto o adjunto.
func (m Message) HasContent() bool {
	return m.Text != "" || m.File != nil
}
