package gate

import (
	"bytes"
	"sync"
	"time"

	"github.com/aristath/rgate/internal/events"
)

// lineWriter publishes each complete line written to it as a
// PhaseOutputEvent.
type lineWriter struct {
	mu    sync.Mutex
	bus   events.Publisher
	phase string
	now   func() time.Time
	buf   []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(string(bytes.TrimRight(w.buf[:i], "\r")))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// flush publishes any trailing partial line.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) emit(line string) {
	w.bus.Publish(events.TopicPhase, events.PhaseOutputEvent{
		Name:      w.phase,
		Line:      line,
		Timestamp: w.now(),
	})
}
