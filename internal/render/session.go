package render

import (
	"context"
	"sync"
	"time"

	"sceneforge/internal/progress"
)

// Session tracks one in-flight render. It owns the cancellation for that
// render and fans progress updates out to any number of subscribers, so a
// stop request or a progress stream never touches global state.
type Session struct {
	id        string
	scene     string
	quality   string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu     sync.Mutex
	last   progress.Update
	subs   map[chan progress.Update]struct{}
	result *Result
	done   chan struct{}
}

// NewSession creates a session whose context is cancelled by Stop.
func NewSession(parent context.Context, id, scene, quality string) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:        id,
		scene:     scene,
		quality:   quality,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[chan progress.Update]struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Scene() string        { return s.scene }
func (s *Session) Quality() string      { return s.quality }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Context returns the context the render runs under.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Stop cancels the render cooperatively. Safe to call more than once and
// after the render finished.
func (s *Session) Stop() {
	s.cancel(ErrStopped)
}

// Publish records a progress update and delivers it to subscribers. Slow
// subscribers miss intermediate updates rather than blocking the render.
func (s *Session) Publish(upd progress.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = upd
	for ch := range s.subs {
		select {
		case ch <- upd:
		default:
		}
	}
}

// Subscribe returns a channel of progress updates and a cancel function.
// The current snapshot is delivered first.
func (s *Session) Subscribe() (<-chan progress.Update, func()) {
	ch := make(chan progress.Update, 16)

	s.mu.Lock()
	ch <- s.last
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	once := sync.Once{}
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

// Snapshot returns the latest progress update.
func (s *Session) Snapshot() progress.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Finish records the final result, releases the context, and wakes Done
// waiters. Subsequent calls are ignored.
func (s *Session) Finish(res Result) {
	s.mu.Lock()
	if s.result != nil {
		s.mu.Unlock()
		return
	}
	s.result = &res
	s.mu.Unlock()

	s.cancel(nil)
	close(s.done)
}

// Done is closed once the render finished, whatever the outcome.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the final result once Finish ran.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}
