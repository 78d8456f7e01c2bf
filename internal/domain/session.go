package domain

// TitleMaxRunes limita el título derivado del primer mensaje.
const TitleMaxRunes = 40

// Session es un hilo de conversación persistido.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// DeriveTitle construye el título de una sesión a partir del primer texto del
// usuario: primeros 40 caracteres, con "..." si hubo recorte.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxRunes {
		return text
	}
	return string(runes[:TitleMaxRunes]) + "..."
}
