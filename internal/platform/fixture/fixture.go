// Package fixture reads UI hierarchies from YAML or JSON files. It stands in
// for a live view system: every read parses the file again, so editing the
// file between captures changes what the recorder sees.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/rum-replay/internal/model"
	"github.com/mj1618/rum-replay/internal/platform"
)

func init() {
	platform.NewProviderFunc = func(source string) (*platform.Provider, error) {
		r := New(source)
		return &platform.Provider{Reader: r, Watcher: r}, nil
	}
}

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// Reader reads a window fixture from Path.
type Reader struct {
	Path     string
	Debounce time.Duration
}

func New(path string) *Reader {
	return &Reader{Path: path, Debounce: DefaultDebounce}
}

// ReadWindow parses the fixture. YAML is a superset of JSON, so both
// encodings are accepted.
func (r *Reader) ReadWindow() (*model.Window, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a window fixture.
func Parse(data []byte) (*model.Window, error) {
	var win model.Window
	if err := yaml.Unmarshal(data, &win); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if win.System.Screen.Width <= 0 || win.System.Screen.Height <= 0 {
		return nil, errors.New("parse fixture: system.screen width and height are required")
	}
	if err := checkIDs(win.Root, map[int64]bool{}); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if win.System.Orientation == model.OrientationUndefined {
		win.System.Orientation = model.OrientationPortrait
		if win.System.Screen.Width > win.System.Screen.Height {
			win.System.Orientation = model.OrientationLandscape
		}
	}
	return &win, nil
}

// checkIDs rejects explicit element ids used more than once. Zero means the
// element has no id.
func checkIDs(el model.Element, seen map[int64]bool) error {
	if el.ID != 0 {
		if seen[el.ID] {
			return fmt.Errorf("duplicate element id %d", el.ID)
		}
		seen[el.ID] = true
	}
	for _, child := range el.Children {
		if err := checkIDs(child, seen); err != nil {
			return err
		}
	}
	return nil
}

// Watch notifies after the fixture file is written, created or replaced.
// Bursts of events within the debounce window produce one notification.
func (r *Reader) Watch(stop <-chan struct{}) (<-chan struct{}, error) {
	abs, err := filepath.Abs(r.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve fixture path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save; watching the directory survives that.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	debounce := r.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if p, err := filepath.Abs(ev.Name); err != nil || p != abs {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, notify)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return changes, nil
}
