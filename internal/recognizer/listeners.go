package recognizer

import "sync"

// Listeners is the single listener slot shared by backends. The zero value
// is ready to use.
type Listeners struct {
	mu      sync.Mutex
	seq     uint64
	current *Listener
}

// Attach implements Recognizer.Attach.
func (s *Listeners) Attach(l Listener) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.current = &l
	s.mu.Unlock()

	return sync.OnceFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq == id {
			s.current = nil
		}
	})
}

// Attached reports whether a listener is installed.
func (s *Listeners) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Listeners) load() *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Listeners) EmitStart() {
	if l := s.load(); l != nil && l.OnStart != nil {
		l.OnStart()
	}
}

func (s *Listeners) EmitPartial(values []string) {
	if l := s.load(); l != nil && l.OnPartialResults != nil {
		l.OnPartialResults(values)
	}
}

func (s *Listeners) EmitResults(values []string) {
	if l := s.load(); l != nil && l.OnResults != nil {
		l.OnResults(values)
	}
}

func (s *Listeners) EmitError(err Error) {
	if l := s.load(); l != nil && l.OnError != nil {
		l.OnError(err)
	}
}

func (s *Listeners) EmitEnd() {
	if l := s.load(); l != nil && l.OnEnd != nil {
		l.OnEnd()
	}
}
