// Package output provides the audible output levels muted during soundfont
// loads: an oto audio stream, and an in-memory level for headless use.
package output

import "sync"

// Memory is an OutputLevel that only stores its value.
type Memory struct {
	mu    sync.Mutex
	level float64
}

// NewMemory returns a Memory at level.
func NewMemory(level float64) *Memory {
	return &Memory{level: clamp(level)}
}

// Level implements contracts.OutputLevel.
func (m *Memory) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// SetLevel implements contracts.OutputLevel. Values are clamped to [0, 1].
func (m *Memory) SetLevel(level float64) {
	m.mu.Lock()
	m.level = clamp(level)
	m.mu.Unlock()
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}
