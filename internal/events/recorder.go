package events

import (
	"sync"
	"time"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/pkg/logging"
)

// DefaultHistorySize is how many events a Recorder keeps.
const DefaultHistorySize = 256

// Recorder is a topology listener that renders every event, logs it and
// keeps a bounded history.
type Recorder struct {
	engine *MessageTemplateEngine
	now    func() time.Time

	mu      sync.Mutex
	history []Event
	limit   int
}

// NewRecorder creates a recorder keeping at most limit events. A
// non-positive limit uses DefaultHistorySize.
func NewRecorder(engine *MessageTemplateEngine, limit int) *Recorder {
	if engine == nil {
		engine = NewMessageTemplateEngine()
	}
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &Recorder{engine: engine, now: time.Now, limit: limit}
}

func dataFor(id identity.Identity) EventData {
	return EventData{Name: id.Name, UserID: id.UserID, Instance: id.Instance}
}

func (r *Recorder) OnInit(running []api.RunningServiceInfo) {
	r.record(ReasonListening, EventData{Running: len(running)})
}

func (r *Recorder) OnServiceCreated(info api.RunningServiceInfo) {
	r.record(ReasonServiceCreated, dataFor(info.Identity))
}

func (r *Recorder) OnServiceStarted(id identity.Identity, pid int) {
	data := dataFor(id)
	data.PID = pid
	r.record(ReasonServiceStarted, data)
}

func (r *Recorder) OnServiceFailedToStart(id identity.Identity) {
	r.record(ReasonServiceFailedToStart, dataFor(id))
}

func (r *Recorder) OnServiceStopped(id identity.Identity) {
	r.record(ReasonServiceStopped, dataFor(id))
}

func (r *Recorder) record(reason EventReason, data EventData) {
	data.Timestamp = r.now()
	event := Event{
		Reason:    reason,
		Type:      reason.Type(),
		Message:   r.engine.Render(reason, data),
		Timestamp: data.Timestamp,
	}

	if event.Type == EventTypeWarning {
		logging.Warn("Events", "%s", event.Message)
	} else {
		logging.Info("Events", "%s", event.Message)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, event)
	if over := len(r.history) - r.limit; over > 0 {
		r.history = append([]Event(nil), r.history[over:]...)
	}
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.history...)
}
