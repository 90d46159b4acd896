package model

import "testing"

func alpha(a float64) *float64 { return &a }

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name string
		el   Element
		want bool
	}{
		{"plain", Element{Bounds: [4]int{0, 0, 10, 10}}, true},
		{"hidden", Element{Hidden: true, Bounds: [4]int{0, 0, 10, 10}}, false},
		{"transparent", Element{Alpha: alpha(0), Bounds: [4]int{0, 0, 10, 10}}, false},
		{"translucent", Element{Alpha: alpha(0.5), Bounds: [4]int{0, 0, 10, 10}}, true},
		{"zero width", Element{Bounds: [4]int{0, 0, 0, 10}}, false},
		{"zero height", Element{Bounds: [4]int{0, 0, 10, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVisible(tt.el); got != tt.want {
				t.Errorf("IsVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpacity_Clamped(t *testing.T) {
	if got := (Element{Alpha: alpha(-1)}).Opacity(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := (Element{Alpha: alpha(3)}).Opacity(); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := (Element{}).Opacity(); got != 1 {
		t.Errorf("expected nil alpha to be opaque, got %v", got)
	}
}

func TestIsOptionSelector(t *testing.T) {
	if !IsOptionSelector(Element{Kind: KindOptionGroup}) {
		t.Error("option group should be an option selector")
	}
	if !IsOptionSelector(Element{Kind: KindSpinner}) {
		t.Error("spinner should be an option selector")
	}
	if IsOptionSelector(Element{Kind: KindGroup}) {
		t.Error("plain group should not be an option selector")
	}
}

func TestPruneHidden(t *testing.T) {
	elements := []Element{
		{ID: 1, Kind: KindGroup, Bounds: [4]int{0, 0, 100, 100}, Children: []Element{
			{ID: 2, Kind: KindText, Bounds: [4]int{0, 0, 10, 10}},
			{ID: 3, Kind: KindGroup, Hidden: true, Bounds: [4]int{0, 0, 10, 10}, Children: []Element{
				{ID: 4, Kind: KindText, Bounds: [4]int{0, 0, 10, 10}},
			}},
			{ID: 5, Kind: KindView, SystemNoise: true, Bounds: [4]int{0, 0, 10, 10}},
		}},
	}
	result := PruneHidden(elements)
	if got := CountElements(result[0]); got != 2 {
		t.Errorf("expected 2 elements after pruning, got %d", got)
	}
	if CountElements(elements[0]) != 5 {
		t.Error("input tree was modified")
	}
}

func TestBoundsContain(t *testing.T) {
	outer := [4]int64{0, 0, 100, 100}
	if !boundsContain(outer, [4]int64{10, 10, 20, 20}) {
		t.Error("expected inner rect contained")
	}
	if !boundsContain(outer, outer) {
		t.Error("expected rect to contain itself")
	}
	if boundsContain(outer, [4]int64{90, 90, 20, 20}) {
		t.Error("overlapping rect should not be contained")
	}
}

func TestBoundsIntersect(t *testing.T) {
	a := [4]int64{0, 0, 10, 10}
	if !boundsIntersect(a, [4]int64{5, 5, 10, 10}) {
		t.Error("expected overlap")
	}
	if boundsIntersect(a, [4]int64{10, 0, 10, 10}) {
		t.Error("touching edges should not overlap")
	}
}
