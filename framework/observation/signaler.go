package observation

import "sync"

// Signaler fans named signals out to subscribers, letting value converters
// and the signal behavior force re-evaluation from outside the data flow.
type Signaler struct {
	mu      sync.RWMutex
	signals map[string][]Subscriber
}

func NewSignaler() *Signaler {
	return &Signaler{signals: make(map[string][]Subscriber)}
}

// AddSignalListener subscribes listener to name. Adding twice is a no-op.
func (s *Signaler) AddSignalListener(name string, listener Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.signals[name] {
		if sameSubscriber(l, listener) {
			return
		}
	}
	s.signals[name] = append(s.signals[name], listener)
}

// RemoveSignalListener unsubscribes listener. Removing an absent listener
// is a no-op.
func (s *Signaler) RemoveSignalListener(name string, listener Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.signals[name]
	for i, l := range list {
		if sameSubscriber(l, listener) {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.signals, name)
		return
	}
	s.signals[name] = list
}

// DispatchSignal notifies every listener of name with
// flags|FromSignal|UpdateTargetInstance.
func (s *Signaler) DispatchSignal(name string, flags LifecycleFlags) {
	s.mu.RLock()
	listeners := append([]Subscriber(nil), s.signals[name]...)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.HandleChange(nil, nil, flags|FromSignal|UpdateTargetInstance)
	}
}

// ListenerCount returns the number of listeners for name.
func (s *Signaler) ListenerCount(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals[name])
}
