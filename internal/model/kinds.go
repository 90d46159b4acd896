package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the closed set of element kinds the recorder understands. Each
// kind has a single parent; IsA walks that chain so mapper lookup can ask
// "is this element at least a text element" without runtime reflection.
type Kind int

const (
	KindView Kind = iota
	KindGroup
	KindText
	KindButton
	KindEditText
	KindCompound
	KindCheckBox
	KindRadioButton
	KindSwitch
	KindImage
	KindImageButton
	KindToolbar
	KindOptionGroup
	KindSpinner
)

var kindParents = map[Kind]Kind{
	KindGroup:       KindView,
	KindText:        KindView,
	KindButton:      KindText,
	KindEditText:    KindText,
	KindCompound:    KindButton,
	KindCheckBox:    KindCompound,
	KindRadioButton: KindCompound,
	KindSwitch:      KindCompound,
	KindImage:       KindView,
	KindImageButton: KindImage,
	KindToolbar:     KindGroup,
	KindOptionGroup: KindGroup,
	KindSpinner:     KindGroup,
}

// KindNames maps the fixture names to kinds.
var KindNames = map[string]Kind{
	"view":         KindView,
	"group":        KindGroup,
	"text":         KindText,
	"button":       KindButton,
	"edit":         KindEditText,
	"compound":     KindCompound,
	"checkbox":     KindCheckBox,
	"radio":        KindRadioButton,
	"switch":       KindSwitch,
	"image":        KindImage,
	"image_button": KindImageButton,
	"toolbar":      KindToolbar,
	"option_group": KindOptionGroup,
	"spinner":      KindSpinner,
}

// IsA reports whether k is other or descends from it.
func (k Kind) IsA(other Kind) bool {
	for cur := k; ; {
		if cur == other {
			return true
		}
		parent, ok := kindParents[cur]
		if !ok {
			return false
		}
		cur = parent
	}
}

func (k Kind) String() string {
	for name, kind := range KindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a fixture name to a Kind.
func ParseKind(s string) (Kind, error) {
	if k, ok := KindNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return KindView, fmt.Errorf("unknown element kind: %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) MarshalYAML() (interface{}, error) { return k.String(), nil }

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	return k.UnmarshalText([]byte(node.Value))
}
