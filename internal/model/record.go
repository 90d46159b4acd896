package model

// RecordType is the numeric record discriminator of the replay format.
type RecordType int

const (
	RecordMeta        RecordType = 4
	RecordFocus       RecordType = 6
	RecordViewEnd     RecordType = 7
	RecordFull        RecordType = 10
	RecordIncremental RecordType = 11
)

func (t RecordType) String() string {
	switch t {
	case RecordMeta:
		return "meta"
	case RecordFocus:
		return "focus"
	case RecordViewEnd:
		return "view_end"
	case RecordFull:
		return "full_snapshot"
	case RecordIncremental:
		return "incremental_snapshot"
	}
	return "unknown"
}

// IncrementalSource discriminates incremental payloads.
type IncrementalSource int

const (
	SourceMutation           IncrementalSource = 0
	SourceViewportResize     IncrementalSource = 4
	SourcePointerInteraction IncrementalSource = 9
)

// Record is one timestamped replay record. Data holds one of MetaData,
// FocusData, FullSnapshotData, MutationData, ViewportResizeData or
// PointerInteractionData; ViewEnd records carry no data.
type Record struct {
	Type      RecordType  `yaml:"type"           json:"type"`
	Timestamp int64       `yaml:"timestamp"      json:"timestamp"` // epoch milliseconds
	Data      interface{} `yaml:"data,omitempty" json:"data,omitempty"`
}

type MetaData struct {
	Width  int64  `yaml:"width"          json:"width"`
	Height int64  `yaml:"height"         json:"height"`
	Href   string `yaml:"href,omitempty" json:"href,omitempty"`
}

type FocusData struct {
	HasFocus bool `yaml:"has_focus" json:"has_focus"`
}

type FullSnapshotData struct {
	Wireframes []Wireframe `yaml:"wireframes" json:"wireframes"`
}

type ViewportResizeData struct {
	Source IncrementalSource `yaml:"source" json:"source"`
	Width  int64             `yaml:"width"  json:"width"`
	Height int64             `yaml:"height" json:"height"`
}

// PointerEventType of a touch interaction.
type PointerEventType string

const (
	PointerDown PointerEventType = "down"
	PointerUp   PointerEventType = "up"
	PointerMove PointerEventType = "move"
)

type PointerInteractionData struct {
	Source      IncrementalSource `yaml:"source"      json:"source"`
	PointerType string            `yaml:"pointerType" json:"pointerType"`
	EventType   PointerEventType  `yaml:"pointerEventType" json:"pointerEventType"`
	PointerID   int64             `yaml:"pointerId"   json:"pointerId"`
	X           int64             `yaml:"x"           json:"x"`
	Y           int64             `yaml:"y"           json:"y"`
}

// EnrichedRecord bundles records under one RUM identity for a single write.
type EnrichedRecord struct {
	ApplicationID string   `yaml:"application_id" json:"application_id"`
	SessionID     string   `yaml:"session_id"     json:"session_id"`
	ViewID        string   `yaml:"view_id"        json:"view_id"`
	Records       []Record `yaml:"records"        json:"records"`
}

func NewMetaRecord(ts int64, screen ScreenBounds) Record {
	return Record{Type: RecordMeta, Timestamp: ts, Data: MetaData{Width: screen.Width, Height: screen.Height}}
}

func NewFocusRecord(ts int64, hasFocus bool) Record {
	return Record{Type: RecordFocus, Timestamp: ts, Data: FocusData{HasFocus: hasFocus}}
}

func NewViewEndRecord(ts int64) Record {
	return Record{Type: RecordViewEnd, Timestamp: ts}
}

func NewFullSnapshotRecord(ts int64, wireframes []Wireframe) Record {
	return Record{Type: RecordFull, Timestamp: ts, Data: FullSnapshotData{Wireframes: wireframes}}
}

func NewMutationRecord(ts int64, data MutationData) Record {
	data.Source = SourceMutation
	return Record{Type: RecordIncremental, Timestamp: ts, Data: data}
}

func NewViewportResizeRecord(ts int64, screen ScreenBounds) Record {
	return Record{Type: RecordIncremental, Timestamp: ts, Data: ViewportResizeData{
		Source: SourceViewportResize,
		Width:  screen.Width,
		Height: screen.Height,
	}}
}

func NewPointerRecord(ts int64, eventType PointerEventType, pointerID, x, y int64) Record {
	return Record{Type: RecordIncremental, Timestamp: ts, Data: PointerInteractionData{
		Source:      SourcePointerInteraction,
		PointerType: "touch",
		EventType:   eventType,
		PointerID:   pointerID,
		X:           x,
		Y:           y,
	}}
}
