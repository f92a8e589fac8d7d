// Package event carries progress notifications from concurrent package
// analyses to a single listener.
//
// Every analysis owns an Emitter backed by its own channel. A Multiplexer
// forwards the events of all emitters, each tagged with its package name,
// into one stream, so a listener can attribute progress lines without any
// shared broadcast channel.
package event

import (
	"sync"
	"time"
)

// Kind is the lifecycle stage an Event reports.
type Kind int

const (
	// KindStarted is sent once when a package analysis begins.
	KindStarted Kind = iota

	// KindProgress carries a free-text status line.
	KindProgress

	// KindCompleted is sent once when the analysis ends, successfully or not.
	KindCompleted
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStarted:
		return "analysis-started"
	case KindProgress:
		return "progress"
	case KindCompleted:
		return "analysis-completed"
	default:
		return "unknown"
	}
}

// Event is one notification from one package analysis.
type Event struct {
	Kind    Kind
	Package string
	Text    string
	Err     error
	Time    time.Time
}

// Sink receives free-text progress lines. Scrapers report through it.
type Sink interface {
	Progress(text string)
}

// Nop is a Sink that drops everything.
type Nop struct{}

// Progress implements Sink.
func (Nop) Progress(string) {}

// taskBuffer is the per-analysis channel capacity.
const taskBuffer = 16

// Emitter publishes the events of a single package analysis.
// A nil *Emitter is valid and drops every event.
type Emitter struct {
	pkg string
	ch  chan Event

	mu     sync.Mutex
	closed bool
}

// Started reports that the analysis began.
func (e *Emitter) Started() {
	e.send(Event{Kind: KindStarted})
}

// Progress reports a status line. It implements Sink.
func (e *Emitter) Progress(text string) {
	e.send(Event{Kind: KindProgress, Text: text})
}

// Completed reports the end of the analysis with its error, if any,
// and closes the emitter.
func (e *Emitter) Completed(err error) {
	e.send(Event{Kind: KindCompleted, Err: err})
	e.Close()
}

// Close ends the emitter. Events sent afterwards are dropped.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// Package returns the package name events are tagged with.
func (e *Emitter) Package() string {
	if e == nil {
		return ""
	}
	return e.pkg
}

func (e *Emitter) send(ev Event) {
	if e == nil {
		return
	}
	ev.Package = e.pkg
	ev.Time = time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.ch <- ev
}

// Multiplexer merges the events of many emitters into one channel.
type Multiplexer struct {
	out chan Event
	wg  sync.WaitGroup
}

// NewMultiplexer returns a Multiplexer whose output channel holds up to
// buffer events.
func NewMultiplexer(buffer int) *Multiplexer {
	if buffer < 0 {
		buffer = 0
	}
	return &Multiplexer{out: make(chan Event, buffer)}
}

// Events returns the merged stream. It is closed by Close.
func (m *Multiplexer) Events() <-chan Event {
	return m.out
}

// Attach creates the emitter of one package analysis. The caller must end
// it with Completed or Close.
func (m *Multiplexer) Attach(pkg string) *Emitter {
	e := &Emitter{pkg: pkg, ch: make(chan Event, taskBuffer)}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for ev := range e.ch {
			m.out <- ev
		}
	}()

	return e
}

// Close waits until every attached emitter is closed and drained, then
// closes the merged stream. The listener must keep reading Events until
// then.
func (m *Multiplexer) Close() {
	m.wg.Wait()
	close(m.out)
}
