package llm

import (
	"bytes"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"mentor-chat/internal/domain"
)

// Chunk es una unidad decodificada del stream de respuesta: un delta de texto
// y, en el frame final (o cercano al final), las fuentes citadas.
type Chunk struct {
	Text    string          `json:"text"`
	Sources []domain.Source `json:"sources,omitempty"`
}

var chunkDelimiter = []byte("\n\n")

// Decoder consume un stream de bytes con frames JSON separados por línea en
// blanco y los entrega de a uno. Una sola pasada, no reiniciable; la
// cancelación es del llamador (dejar de leer / cerrar el reader subyacente).
type Decoder struct {
	r      io.Reader
	logger *zap.Logger
	buf    []byte
	tmp    []byte
	eof    bool
	done   bool
}

func NewDecoder(r io.Reader, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{r: r, logger: logger, tmp: make([]byte, 4096)}
}

// Next devuelve el siguiente chunk o io.EOF al agotarse el stream. Los frames
// que no parsean se descartan con un diagnóstico; un resto truncado al final
// tampoco aborta el stream.
func (d *Decoder) Next() (Chunk, error) {
	if d.done {
		return Chunk{}, io.EOF
	}
	for {
		if i := bytes.Index(d.buf, chunkDelimiter); i >= 0 {
			frame := bytes.TrimSpace(d.buf[:i])
			d.buf = d.buf[i+len(chunkDelimiter):]
			if len(frame) == 0 {
				continue
			}
			var c Chunk
			if err := json.Unmarshal(frame, &c); err != nil {
				d.logger.Warn("frame invalido descartado", zap.Error(err), zap.ByteString("frame", frame))
				continue
			}
			return c, nil
		}

		if d.eof {
			d.done = true
			frame := bytes.TrimSpace(d.buf)
			d.buf = nil
			if len(frame) == 0 {
				return Chunk{}, io.EOF
			}
			var c Chunk
			if err := json.Unmarshal(frame, &c); err != nil {
				d.logger.Warn("restos JSON invalidos al final del stream", zap.Error(err), zap.ByteString("frame", frame))
				return Chunk{}, io.EOF
			}
			return c, nil
		}

		n, err := d.r.Read(d.tmp)
		if n > 0 {
			d.buf = append(d.buf, d.tmp[:n]...)
		}
		if err == io.EOF {
			d.eof = true
		} else if err != nil {
			return Chunk{}, err
		}
	}
}
