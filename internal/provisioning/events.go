package provisioning

// EventLevel is the severity of a diagnostic event.
type EventLevel string

const (
	// LevelInfo marks progress events.
	LevelInfo EventLevel = "info"
	// LevelWarn marks non-fatal diagnostics such as deprecated flag usage.
	LevelWarn EventLevel = "warn"
)

// Event is a structured diagnostic emitted by the engine and rendered by the
// caller. The engine itself never writes to stdout or stderr.
type Event struct {
	Level   EventLevel
	Message string
	Fields  map[string]string
}

// EventSink receives diagnostic events. A nil sink drops them.
type EventSink func(Event)

func (s *Sequencer) info(message string, fields map[string]string) {
	s.emit(Event{Level: LevelInfo, Message: message, Fields: fields})
}

func (s *Sequencer) warn(message string, fields map[string]string) {
	s.emit(Event{Level: LevelWarn, Message: message, Fields: fields})
}

func (s *Sequencer) emit(ev Event) {
	if s.events != nil {
		s.events(ev)
	}
}
