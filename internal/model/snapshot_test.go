package model

import "testing"

func TestElementPath(t *testing.T) {
	root := Element{Kind: KindGroup}
	p := ElementPath("", root, 0)
	if p != "group[0]" {
		t.Errorf("expected group[0], got %q", p)
	}
	p = ElementPath(p, Element{Kind: KindButton}, 2)
	if p != "group[0] > button[2]" {
		t.Errorf("expected nested path, got %q", p)
	}
}

func TestWireframeID_ExplicitID(t *testing.T) {
	el := Element{ID: 42, Kind: KindText}
	if got := WireframeID(el, "x", 0); got != 42 {
		t.Errorf("expected explicit id 42, got %d", got)
	}
	second := WireframeID(el, "x", 1)
	if second == 42 || second == 0 {
		t.Errorf("expected a distinct id for the second wireframe, got %d", second)
	}
	if second != WireframeID(el, "other", 1) {
		t.Error("derived ids of an explicit element should not depend on the path")
	}
}

func TestWireframeID_StableForPath(t *testing.T) {
	el := Element{Kind: KindText}
	a := WireframeID(el, "group[0] > text[1]", 0)
	b := WireframeID(el, "group[0] > text[1]", 0)
	if a != b {
		t.Errorf("id not stable: %d != %d", a, b)
	}
	if a == WireframeID(el, "group[0] > text[2]", 0) {
		t.Error("different paths should produce different ids")
	}
}

func TestWireframeID_FitsJSONNumber(t *testing.T) {
	for _, path := range []string{"a", "b", "group[0] > text[1]", "view[9]"} {
		id := WireframeID(Element{}, path, 0)
		if id <= 0 || id > idMask {
			t.Errorf("id %d for %q out of range", id, path)
		}
	}
}
