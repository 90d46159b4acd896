package model

// IsVisible reports whether the element is rendered at all: not hidden,
// not fully transparent, and with a non-empty area.
func IsVisible(el Element) bool {
	if el.Hidden || el.Opacity() == 0 {
		return false
	}
	return el.Bounds[2] > 0 && el.Bounds[3] > 0
}

// IsSystemNoise reports whether the element is system chrome the recorder
// must never capture (status bar and navigation bar backgrounds).
func IsSystemNoise(el Element) bool {
	return el.SystemNoise
}

// IsToolbar reports whether the element is a composite that is recorded as a
// single flattened picture instead of being walked.
func IsToolbar(el Element) bool {
	return el.Kind.IsA(KindToolbar)
}

// IsOptionSelector reports whether the element hosts a set of selectable
// options (radio groups, spinners). Text under such a parent is masked as a
// whole rather than character by character.
func IsOptionSelector(el Element) bool {
	return el.Kind.IsA(KindOptionGroup) || el.Kind.IsA(KindSpinner)
}

// CountElements returns the number of elements in the subtree rooted at el.
func CountElements(el Element) int {
	n := 1
	for _, child := range el.Children {
		n += CountElements(child)
	}
	return n
}

// PruneHidden removes invisible and system-noise elements together with
// their subtrees. The recorder applies the same rule while walking; this is
// used to preview what a capture would contain.
func PruneHidden(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		if !IsVisible(el) || IsSystemNoise(el) {
			continue
		}
		pruned := el
		pruned.Children = PruneHidden(el.Children)
		result = append(result, pruned)
	}
	return result
}

// boundsIntersect checks if two [x, y, width, height] rectangles overlap.
func boundsIntersect(a, b [4]int64) bool {
	ax1, ay1, ax2, ay2 := a[0], a[1], a[0]+a[2], a[1]+a[3]
	bx1, by1, bx2, by2 := b[0], b[1], b[0]+b[2], b[1]+b[3]
	return ax1 < bx2 && ax2 > bx1 && ay1 < by2 && ay2 > by1
}

// boundsContain checks whether outer fully contains inner.
func boundsContain(outer, inner [4]int64) bool {
	return inner[0] >= outer[0] && inner[1] >= outer[1] &&
		inner[0]+inner[2] <= outer[0]+outer[2] &&
		inner[1]+inner[3] <= outer[1]+outer[3]
}
