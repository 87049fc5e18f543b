package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the minimum time between two progress edits.
const DefaultInterval = 3 * time.Second

// Editor applies new text to the status message.
type Editor interface {
	EditText(text string) error
}

type Config struct {
	Editor Editor
	// Interval is the minimum time between successful edits. Zero means
	// DefaultInterval.
	Interval time.Duration
	Log      *zap.SugaredLogger
	// Now is the clock; zero means time.Now.
	Now func() time.Time
}

// Reporter bridges a download's progress callbacks to status message edits.
//
// Publish may be called from any goroutine and never blocks: events land in
// a single-slot mailbox where a newer event replaces an older one, except
// that a finished event is never replaced. One drain goroutine consumes the
// mailbox, applies the throttle and performs the edits, so the producer side
// carries none of that work. Edit failures are logged and swallowed.
type Reporter struct {
	editor   Editor
	interval time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time

	mu      sync.Mutex
	pending *Event

	notify chan struct{}
	done   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup

	// Drain-goroutine state.
	lastEdit     time.Time
	sentFinished bool
}

// NewReporter starts a reporter draining into cfg.Editor.
func NewReporter(cfg Config) *Reporter {
	r := &Reporter{
		editor:   cfg.Editor,
		interval: cfg.Interval,
		log:      cfg.Log,
		now:      cfg.Now,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.log == nil {
		r.log = zap.S().Named("progress")
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Publish hands an event to the drain goroutine. It never blocks and is safe
// to call from the download's callback context.
func (r *Reporter) Publish(e Event) {
	r.mu.Lock()
	if r.pending == nil || r.pending.Status != StatusFinished || e.Status == StatusFinished {
		ev := e
		r.pending = &ev
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Close stops the reporter and waits for the drain goroutine to exit. A
// pending finished event is still delivered. Close is idempotent.
func (r *Reporter) Close() {
	r.stop.Do(func() { close(r.done) })
	r.wg.Wait()
}

func (r *Reporter) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			// Flush a finished event that arrived just before Close.
			if e, ok := r.take(); ok && e.Status == StatusFinished {
				r.handle(e)
			}
			return
		case <-r.notify:
			e, ok := r.take()
			if !ok {
				continue
			}
			r.handle(e)
			if r.sentFinished {
				return
			}
		}
	}
}

func (r *Reporter) take() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Event{}, false
	}
	e := *r.pending
	r.pending = nil
	return e, true
}

// handle renders and applies one event. The final edit happens exactly once;
// in-progress edits are dropped while the throttle window is open. lastEdit
// only advances on a successful edit, so a failed edit does not consume the
// window.
func (r *Reporter) handle(e Event) {
	if r.sentFinished {
		return
	}
	if e.Status != StatusFinished && r.now().Sub(r.lastEdit) < r.interval {
		return
	}
	if err := r.editor.EditText(Render(e)); err != nil {
		r.log.Warnw("progress edit failed", "error", err)
		return
	}
	r.lastEdit = r.now()
	if e.Status == StatusFinished {
		r.sentFinished = true
	}
}
