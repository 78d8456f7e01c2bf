package llm

import (
	"context"
	"io"
	"strings"

	"mentor-chat/internal/domain"
)

// MockStreamClient permite tests sin llamar a un backend real.
type MockStreamClient struct {
	Stream       string
	Err          error
	Calls        int
	LastContents []domain.Content
}

func (m *MockStreamClient) GenerateStream(ctx context.Context, contents []domain.Content) (io.ReadCloser, error) {
	m.Calls++
	m.LastContents = contents
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(strings.NewReader(m.Stream)), nil
}
