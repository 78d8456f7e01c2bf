package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mentor-chat/internal/domain"
)

// StreamClient abre un stream de generación contra el backend. El cuerpo
// devuelto entrega frames JSON separados por línea en blanco (ver Decoder);
// cerrar el cuerpo cancela el stream.
type StreamClient interface {
	GenerateStream(ctx context.Context, contents []domain.Content) (io.ReadCloser, error)
}

// APIError transporta el mensaje de error devuelto por el backend en un
// response no-2xx. El mensaje se muestra al usuario tal cual.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

// HTTPClient implementa StreamClient usando HTTP contra el endpoint generativo.
type HTTPClient struct {
	endpoint    string
	apiKey      string
	instruction string
	client      *http.Client
	logger      *zap.Logger
}

// NewHTTPClient construye el cliente del backend. La instrucción de sistema
// se fija una vez aquí y viaja con cada request; si viene vacía se usa
// DefaultSystemInstruction.
func NewHTTPClient(endpoint, apiKey, instruction string, logger *zap.Logger) *HTTPClient {
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		apiKey:      apiKey,
		instruction: instruction,
		// Sin timeout total: el stream puede durar más que cualquier tope
		// razonable; solo se acota la espera de cabeceras.
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
		},
		logger: logger,
	}
}

type generateRequest struct {
	SystemInstruction string           `json:"system_instruction"`
	Contents          []domain.Content `json:"contents"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func (c *HTTPClient) GenerateStream(ctx context.Context, contents []domain.Content) (io.ReadCloser, error) {
	bodyBytes, err := json.Marshal(generateRequest{
		SystemInstruction: c.instruction,
		Contents:          contents,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		c.logger.Warn("backend error", zap.Int("status", resp.StatusCode), zap.ByteString("body", raw))
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	return resp.Body, nil
}

// parseAPIError extrae el mensaje del cuerpo JSON {"error","details"}; si no
// se puede, cae en un mensaje genérico de red.
func parseAPIError(status int, raw []byte) *APIError {
	msg := fmt.Sprintf("Gabim në rrjet: %d", status)
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		if er.Error != "" {
			msg = er.Error
		} else if er.Details != "" {
			msg = er.Details
		}
	}
	return &APIError{Status: status, Message: msg}
}
