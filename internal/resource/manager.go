package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"clinicassist-ai/internal/service"
)

// ModelKind identifies one of the model capabilities the service depends on.
type ModelKind string

const (
	// ModelSpeech is the speech-to-text model.
	ModelSpeech ModelKind = "speech"
	// ModelGeneration is the text-generation model.
	ModelGeneration ModelKind = "generation"
	// ModelEmbedding is the text-embedding model.
	ModelEmbedding ModelKind = "embedding"
)

// Heavy reports whether the model kind counts against the single-resident
// accelerator memory budget. The embedding model is small enough to stay
// resident alongside either heavy model.
func (k ModelKind) Heavy() bool {
	return k != ModelEmbedding
}

// SlotState describes the lifecycle state of one model slot.
type SlotState string

const (
	StateUnloaded SlotState = "unloaded"
	StateLoading  SlotState = "loading"
	StateReady    SlotState = "ready"
	StateBusy     SlotState = "busy"
)

// Loader loads and unloads one model in accelerator memory.
// *llm.ModelLoader satisfies this interface.
type Loader interface {
	Load(ctx context.Context) error
	Unload(ctx context.Context) error
}

// Handle represents a granted acquisition of a model slot. The holder may
// run inference against the model until it calls Manager.Release.
type Handle struct {
	kind     ModelKind
	released bool
}

// Kind returns the model kind this handle grants access to.
func (h *Handle) Kind() ModelKind {
	return h.kind
}

type slot struct {
	state  SlotState
	loader Loader
}

type waiter struct {
	kind     ModelKind
	ready    chan struct{}
	admitted bool
	needLoad bool
}

// Manager serializes access to scarce accelerator memory across model kinds.
// At most one heavy model (speech or generation) is resident at a time;
// acquiring one while the other is mid-use blocks until it is released.
// Waiters are granted in arrival order per model kind.
type Manager struct {
	mu     sync.Mutex
	slots  map[ModelKind]*slot
	queue  []*waiter
	logger *slog.Logger
}

// NewManager creates a manager with one slot per configured model kind.
func NewManager(loaders map[ModelKind]Loader) *Manager {
	slots := make(map[ModelKind]*slot, len(loaders))
	for kind, loader := range loaders {
		slots[kind] = &slot{state: StateUnloaded, loader: loader}
	}
	return &Manager{
		slots:  slots,
		logger: slog.Default(),
	}
}

// Acquire blocks until the slot for the given kind can be granted to the
// caller, loading the model first if it is not resident. The returned handle
// must be released exactly once, on every exit path.
func (m *Manager) Acquire(ctx context.Context, kind ModelKind) (*Handle, error) {
	m.mu.Lock()
	s, ok := m.slots[kind]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: unknown model kind %q", service.ErrInvalidInput, kind)
	}

	w := &waiter{kind: kind, ready: make(chan struct{})}
	m.queue = append(m.queue, w)
	m.admitLocked()
	m.mu.Unlock()

	select {
	case <-w.ready:
	case <-ctx.Done():
		m.mu.Lock()
		if !w.admitted {
			m.removeWaiterLocked(w)
			m.mu.Unlock()
			return nil, ctx.Err()
		}
		// Admission raced with cancellation; the slot is already reserved
		// for us, so fall through and let the caller release it.
		m.mu.Unlock()
	}

	if w.needLoad {
		if err := s.loader.Load(ctx); err != nil {
			m.mu.Lock()
			s.state = StateUnloaded
			m.admitLocked()
			m.mu.Unlock()
			return nil, fmt.Errorf("load %s model: %w", kind, err)
		}
		m.mu.Lock()
		s.state = StateBusy
		m.mu.Unlock()
		m.logger.InfoContext(ctx, "model loaded", "kind", kind)
	}

	return &Handle{kind: kind}, nil
}

// Release returns the slot held by handle to the ready state and grants it
// to the next waiter, if any. Releasing a handle twice is a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.released {
		return
	}
	h.released = true

	s, ok := m.slots[h.kind]
	if !ok {
		return
	}
	if s.state == StateBusy {
		s.state = StateReady
	}
	m.admitLocked()
}

// Clear evicts the model for the given kind from accelerator memory.
// Clearing a slot that is mid-use is a caller error (service.ErrSlotBusy);
// clearing an unloaded slot is a no-op, so Clear is idempotent.
func (m *Manager) Clear(ctx context.Context, kind ModelKind) error {
	m.mu.Lock()
	s, ok := m.slots[kind]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: unknown model kind %q", service.ErrInvalidInput, kind)
	}
	if s.state == StateBusy || s.state == StateLoading {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s slot is %s", service.ErrSlotBusy, kind, s.state)
	}
	wasReady := s.state == StateReady
	s.state = StateUnloaded
	m.admitLocked()
	m.mu.Unlock()

	if wasReady {
		if err := s.loader.Unload(ctx); err != nil {
			// The slot is already marked unloaded; the server-side eviction
			// failing only wastes memory until the next load.
			m.logger.WarnContext(ctx, "model unload failed", "kind", kind, "error", err)
		} else {
			m.logger.InfoContext(ctx, "model evicted", "kind", kind)
		}
	}
	return nil
}

// ClearAll evicts every resident model. It fails with service.ErrSlotBusy
// without touching any slot if any model is mid-use.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	for kind, s := range m.slots {
		if s.state == StateBusy || s.state == StateLoading {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s slot is %s", service.ErrSlotBusy, kind, s.state)
		}
	}
	var evict []ModelKind
	for kind, s := range m.slots {
		if s.state == StateReady {
			evict = append(evict, kind)
		}
		s.state = StateUnloaded
	}
	m.admitLocked()
	m.mu.Unlock()

	for _, kind := range evict {
		if err := m.slots[kind].loader.Unload(ctx); err != nil {
			m.logger.WarnContext(ctx, "model unload failed", "kind", kind, "error", err)
		}
	}
	return nil
}

// Health reports the current state of every slot without side effects.
func (m *Manager) Health() map[ModelKind]SlotState {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[ModelKind]SlotState, len(m.slots))
	for kind, s := range m.slots {
		states[kind] = s.state
	}
	return states
}

// admitLocked grants queued waiters whose slots can be reserved now.
// Only the first queued waiter of each kind is a candidate, which keeps
// grants in arrival order per kind while allowing other kinds to pass.
// Caller must hold m.mu.
func (m *Manager) admitLocked() {
	seen := make(map[ModelKind]bool)
	i := 0
	for i < len(m.queue) {
		w := m.queue[i]
		if seen[w.kind] {
			i++
			continue
		}
		seen[w.kind] = true

		if !m.tryReserveLocked(w) {
			i++
			continue
		}

		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		w.admitted = true
		close(w.ready)
	}
}

// tryReserveLocked reserves the slot for w if slot state and the residency
// policy allow it, evicting an idle heavy model if one is in the way.
// Caller must hold m.mu.
func (m *Manager) tryReserveLocked(w *waiter) bool {
	s := m.slots[w.kind]
	if s.state == StateBusy || s.state == StateLoading {
		return false
	}

	if w.kind.Heavy() && s.state == StateUnloaded {
		for kind, other := range m.slots {
			if kind == w.kind || !kind.Heavy() {
				continue
			}
			switch other.state {
			case StateBusy, StateLoading:
				// The other heavy model is mid-use; wait for its release.
				return false
			case StateReady:
				// Idle eviction to make room for the incoming model.
				other.state = StateUnloaded
				go func(kind ModelKind, loader Loader) {
					if err := loader.Unload(context.Background()); err != nil {
						m.logger.Warn("model unload failed", "kind", kind, "error", err)
					}
				}(kind, other.loader)
			}
		}
	}

	if s.state == StateReady {
		s.state = StateBusy
		w.needLoad = false
	} else {
		s.state = StateLoading
		w.needLoad = true
	}
	return true
}

// removeWaiterLocked drops w from the queue. Caller must hold m.mu.
func (m *Manager) removeWaiterLocked(w *waiter) {
	for i, queued := range m.queue {
		if queued == w {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}
