package domain

// InlineData transporta un adjunto dentro de una parte del request.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part es una unidad de contenido enviada al backend: texto o adjunto.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// Content es un registro rol+partes del historial saneado, en el formato que
// espera el backend generativo.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}
