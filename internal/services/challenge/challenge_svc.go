package challenge

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
)

//go:embed challenges.json
var fs embed.FS

// Service hands out one opaque challenge blob per room. The server never
// looks inside a challenge; it is assigned at room creation and immutable.
type Service struct {
	pool []json.RawMessage
}

func NewService() (*Service, error) {
	data, err := fs.ReadFile("challenges.json")
	if err != nil {
		return nil, fmt.Errorf("read embedded challenges: %w", err)
	}
	var pool []json.RawMessage
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("parse challenges: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("challenge pool is empty")
	}
	return &Service{pool: pool}, nil
}

// Random picks one challenge from the pool.
func (s *Service) Random() json.RawMessage {
	return s.pool[rand.Intn(len(s.pool))]
}
