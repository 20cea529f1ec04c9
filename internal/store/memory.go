package store

import (
	"context"
	"sync"

	"github.com/collaby/collaby-bot/internal/models"
)

// Memory keeps the encoded snapshot in process. State is lost on exit.
type Memory struct {
	mu   sync.Mutex
	body []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.body)
}

func (m *Memory) Save(_ context.Context, snap *models.Snapshot) error {
	body, err := encode(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.body = body
	return nil
}

func (m *Memory) Close() error {
	return nil
}
