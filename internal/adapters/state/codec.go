package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
)

// ErrCorruptState is returned when a stored blob cannot be decoded
var ErrCorruptState = errors.New("stored state is corrupt")

func encode(s *core.State) ([]byte, error) {
	if s == nil {
		s = core.NewState()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*core.State, error) {
	s := core.NewState()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if s.Items == nil {
		s.Items = make(map[string]core.AlertRecord)
	}
	if s.SentSlots == nil {
		s.SentSlots = make(map[string]time.Time)
	}
	return s, nil
}
