package rum

// EventType discriminates written RUM events.
type EventType string

const (
	EventView     EventType = "view"
	EventAction   EventType = "action"
	EventResource EventType = "resource"
	EventError    EventType = "error"
	EventLongTask EventType = "long_task"
)

// Event is a RUM event as written. Exactly one of the payload fields is set,
// matching Type.
type Event struct {
	Type      EventType     `yaml:"type"                json:"type"`
	Timestamp int64         `yaml:"timestamp"           json:"timestamp"` // epoch milliseconds
	Context   Context       `yaml:"context"             json:"context"`
	View      *ViewData     `yaml:"view,omitempty"      json:"view,omitempty"`
	Action    *ActionData   `yaml:"action,omitempty"    json:"action,omitempty"`
	Resource  *ResourceData `yaml:"resource,omitempty"  json:"resource,omitempty"`
	Error     *ErrorData    `yaml:"error,omitempty"     json:"error,omitempty"`
	LongTask  *LongTaskData `yaml:"long_task,omitempty" json:"long_task,omitempty"`
}

type ViewData struct {
	ID            string `yaml:"id"              json:"id"`
	Name          string `yaml:"name"            json:"name"`
	URL           string `yaml:"url"             json:"url"`
	TimeSpent     int64  `yaml:"time_spent"      json:"time_spent"` // nanoseconds
	Version       int64  `yaml:"document_version" json:"document_version"`
	IsActive      bool   `yaml:"is_active"       json:"is_active"`
	ActionCount   int64  `yaml:"action_count"    json:"action_count"`
	ResourceCount int64  `yaml:"resource_count"  json:"resource_count"`
	ErrorCount    int64  `yaml:"error_count"     json:"error_count"`
	LongTaskCount int64  `yaml:"long_task_count" json:"long_task_count"`
}

type ActionData struct {
	ID            string     `yaml:"id"                     json:"id"`
	Type          ActionType `yaml:"type"                   json:"type"`
	Name          string     `yaml:"name,omitempty"         json:"name,omitempty"`
	LoadingTime   int64      `yaml:"loading_time,omitempty" json:"loading_time,omitempty"` // nanoseconds
	ResourceCount int64      `yaml:"resource_count"         json:"resource_count"`
	ErrorCount    int64      `yaml:"error_count"            json:"error_count"`
}

type ResourceData struct {
	ID         string `yaml:"id"                    json:"id"`
	URL        string `yaml:"url"                   json:"url"`
	Method     string `yaml:"method"                json:"method"`
	Kind       string `yaml:"kind,omitempty"        json:"kind,omitempty"`
	StatusCode int    `yaml:"status_code,omitempty" json:"status_code,omitempty"`
	Size       int64  `yaml:"size,omitempty"        json:"size,omitempty"`
	Duration   int64  `yaml:"duration"              json:"duration"` // nanoseconds
}

type ErrorData struct {
	Message     string      `yaml:"message"                json:"message"`
	Source      ErrorSource `yaml:"source"                 json:"source"`
	IsFatal     bool        `yaml:"is_fatal,omitempty"     json:"is_fatal,omitempty"`
	ResourceURL string      `yaml:"resource_url,omitempty" json:"resource_url,omitempty"`
}

type LongTaskData struct {
	Duration int64  `yaml:"duration"         json:"duration"` // nanoseconds
	Target   string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Writer persists written events.
type Writer interface {
	Write(e Event)
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(e Event)

func (f WriterFunc) Write(e Event) { f(e) }

// NoOpWriter discards everything. Unsampled sessions write through it.
var NoOpWriter Writer = noOpWriter{}

type noOpWriter struct{}

func (noOpWriter) Write(Event) {}
