package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/api"
	"switchboard/internal/identity"
	"switchboard/internal/manager"
	"switchboard/pkg/logging"
)

var _ manager.Listener = (*Recorder)(nil)

func TestMessageTemplateEngine_Render(t *testing.T) {
	engine := NewMessageTemplateEngine()
	user := "505c0ee9-3013-43c0-82b0-a84f50cf8d84"

	tests := []struct {
		name   string
		reason EventReason
		data   EventData
		want   string
	}{
		{
			name:   "created",
			reason: ReasonServiceCreated,
			data:   EventData{Name: "echo", UserID: user},
			want:   "echo@505c0ee9 created",
		},
		{
			name:   "started with pid and instance",
			reason: ReasonServiceStarted,
			data:   EventData{Name: "echo", UserID: user, Instance: "a", PID: 42},
			want:   "echo@505c0ee9/a started (pid 42)",
		},
		{
			name:   "started without pid",
			reason: ReasonServiceStarted,
			data:   EventData{Name: "echo", UserID: user},
			want:   "echo@505c0ee9 started",
		},
		{
			name:   "listening singular",
			reason: ReasonListening,
			data:   EventData{Running: 1},
			want:   "listening with 1 running instance",
		},
		{
			name:   "listening plural",
			reason: ReasonListening,
			data:   EventData{Running: 3},
			want:   "listening with 3 running instances",
		},
		{
			name:   "unknown reason",
			reason: EventReason("Other"),
			data:   EventData{Name: "echo"},
			want:   "Event: Other for echo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Render(tt.reason, tt.data))
		})
	}
}

func TestMessageTemplateEngine_SetTemplate(t *testing.T) {
	engine := NewMessageTemplateEngine()

	require.NoError(t, engine.SetTemplate(ReasonServiceStopped, `{{.Name | upper}} gone ({{template "identity" .}})`))
	assert.Equal(t, "ECHO gone (echo@abc)", engine.Render(ReasonServiceStopped, EventData{Name: "echo", UserID: "abc"}))

	err := engine.SetTemplate(ReasonServiceStopped, `{{.Name`)
	assert.Error(t, err)
}

func TestRecorder_History(t *testing.T) {
	logging.Discard()
	r := NewRecorder(nil, 2)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	id := identity.New("echo", "505c0ee9-3013-43c0-82b0-a84f50cf8d84")
	r.OnInit(nil)
	r.OnServiceCreated(api.RunningServiceInfo{Identity: id})
	r.OnServiceFailedToStart(id)

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ReasonServiceCreated, events[0].Reason)
	assert.Equal(t, EventTypeNormal, events[0].Type)
	assert.Equal(t, ReasonServiceFailedToStart, events[1].Reason)
	assert.Equal(t, EventTypeWarning, events[1].Type)
	assert.Equal(t, "echo@505c0ee9 failed to start", events[1].Message)
	assert.Equal(t, fixed, events[1].Timestamp)
}
