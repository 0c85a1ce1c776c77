package workqueue

import "sync"

// ConcurrencyStrategy decides whether a pending task may start. The queue
// calls TryAcquire before starting a task and Release once it returns.
type ConcurrencyStrategy interface {
	TryAcquire(requiresLLM bool) bool
	Release(requiresLLM bool)
}

// SlotStrategy caps provider-bound tasks at a fixed number of slots and runs
// other tasks one at a time.
type SlotStrategy struct {
	mu          sync.Mutex
	llmSlots    int
	llmRunning  int
	dataRunning bool
}

// NewSlotStrategy allows up to llmSlots provider-bound tasks at once.
// Values below 1 are treated as 1.
func NewSlotStrategy(llmSlots int) *SlotStrategy {
	return &SlotStrategy{llmSlots: max(llmSlots, 1)}
}

func (s *SlotStrategy) TryAcquire(requiresLLM bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if requiresLLM {
		if s.llmRunning >= s.llmSlots {
			return false
		}
		s.llmRunning++
		return true
	}
	if s.dataRunning {
		return false
	}
	s.dataRunning = true
	return true
}

func (s *SlotStrategy) Release(requiresLLM bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !requiresLLM {
		s.dataRunning = false
		return
	}
	if s.llmRunning > 0 {
		s.llmRunning--
	}
}

// InUse returns the number of occupied LLM slots.
func (s *SlotStrategy) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.llmRunning
}
