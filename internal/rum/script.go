package rum

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/clock"
)

// Step is one scripted event. At is the offset from the start of the script.
type Step struct {
	At          time.Duration `yaml:"at"`
	Type        string        `yaml:"type"`
	Key         string        `yaml:"key,omitempty"`
	Name        string        `yaml:"name,omitempty"`
	URL         string        `yaml:"url,omitempty"`
	Method      string        `yaml:"method,omitempty"`
	Action      ActionType    `yaml:"action,omitempty"`
	WaitForStop bool          `yaml:"wait_for_stop,omitempty"`
	StatusCode  int           `yaml:"status_code,omitempty"`
	Size        int64         `yaml:"size,omitempty"`
	Kind        string        `yaml:"kind,omitempty"`
	Message     string        `yaml:"message,omitempty"`
	Source      ErrorSource   `yaml:"source,omitempty"`
	Fatal       bool          `yaml:"fatal,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`
}

// Script is a timed sequence of RUM events, used to simulate sessions.
type Script struct {
	Steps []Step `yaml:"events"`
}

// ParseScript decodes a YAML script and checks that offsets never go back.
func ParseScript(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse script: %w", err)
	}
	var last time.Duration
	for i, st := range s.Steps {
		if st.At < last {
			return s, fmt.Errorf("step %d: offset %s is before %s", i, st.At, last)
		}
		last = st.At
		if _, err := st.Event(EventTime{}); err != nil {
			return s, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return s, nil
}

// Event builds the raw event for the step at the given time.
func (st Step) Event(at EventTime) (RawEvent, error) {
	switch st.Type {
	case "start_view":
		return StartView{EventTime: at, Key: st.Key, Name: st.Name, URL: st.URL}, nil
	case "stop_view":
		return StopView{EventTime: at, Key: st.Key}, nil
	case "start_action":
		typ := st.Action
		if typ == "" {
			typ = ActionCustom
		}
		return StartAction{EventTime: at, Type: typ, Name: st.Name, WaitForStop: st.WaitForStop}, nil
	case "stop_action":
		return StopAction{EventTime: at, Type: st.Action, Name: st.Name}, nil
	case "start_resource":
		return StartResource{EventTime: at, Key: st.Key, URL: st.URL, Method: st.Method}, nil
	case "stop_resource":
		return StopResource{EventTime: at, Key: st.Key, StatusCode: st.StatusCode, Size: st.Size, Kind: st.Kind}, nil
	case "stop_resource_with_error":
		return StopResourceWithError{EventTime: at, Key: st.Key, Message: st.Message, Source: st.Source}, nil
	case "add_error":
		return AddError{EventTime: at, Message: st.Message, Source: st.Source, IsFatal: st.Fatal}, nil
	case "add_long_task":
		return AddLongTask{EventTime: at, Duration: st.Duration, Target: st.Name}, nil
	case "reset_session":
		return ResetSession{EventTime: at}, nil
	case "keep_alive":
		return KeepAlive{EventTime: at}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", st.Type)
}

// Run drives app through the script on clk, advancing the clock to each
// step's offset before applying it. It returns the active context after each
// step.
func (s Script) Run(app *ApplicationScope, clk *clock.Fake, w Writer) ([]Context, error) {
	origin := clk.NanoTime()
	contexts := make([]Context, 0, len(s.Steps))
	for i, st := range s.Steps {
		if d := origin + int64(st.At) - clk.NanoTime(); d > 0 {
			clk.Advance(time.Duration(d))
		}
		e, err := st.Event(Now(clk))
		if err != nil {
			return contexts, fmt.Errorf("step %d: %w", i, err)
		}
		app.HandleEvent(e, w)
		contexts = append(contexts, app.ActiveContext())
	}
	return contexts, nil
}
