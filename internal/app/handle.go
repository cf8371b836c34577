package app

import (
	"sync/atomic"

	"github.com/corey/licscan/internal/domain/match"
)

// IndexHandle publishes the current match engine. Readers never block: a
// reload stores a new engine and in-flight matches keep the one they loaded.
type IndexHandle struct {
	engine atomic.Pointer[match.Engine]
}

// Load returns the current engine, or nil before the first Store.
func (h *IndexHandle) Load() *match.Engine {
	return h.engine.Load()
}

// Store publishes e and returns the engine it replaced.
func (h *IndexHandle) Store(e *match.Engine) *match.Engine {
	return h.engine.Swap(e)
}
