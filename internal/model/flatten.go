package model

import "fmt"

// FlattenNodes converts node trees into a single pre-ordered wireframe list.
// Each wireframe is clipped against its ancestors; wireframes left without a
// visible area, shapes that draw nothing, and wireframes fully hidden by a
// later opaque wireframe are dropped. A wireframe reusing an id already
// present in the list is given a new id derived from the repeated one.
func FlattenNodes(nodes []Node) []Wireframe {
	var result []Wireframe
	for _, n := range nodes {
		flattenRecursive(n, &result)
	}
	return uniqueIDs(filterInvalid(result))
}

func uniqueIDs(wireframes []Wireframe) []Wireframe {
	used := make(map[int64]bool, len(wireframes))
	repeats := make(map[int64]int)
	for i := range wireframes {
		id := wireframes[i].ID
		for used[id] {
			repeats[wireframes[i].ID]++
			id = hashID(fmt.Sprintf("%d~%d", wireframes[i].ID, repeats[wireframes[i].ID]))
		}
		used[id] = true
		wireframes[i].ID = id
	}
	return wireframes
}

func flattenRecursive(n Node, result *[]Wireframe) {
	for _, wf := range n.Wireframes {
		if wf == nil {
			continue
		}
		flat := *wf
		flat.Clip = resolveClip(flat, n.Parents)
		*result = append(*result, flat)
	}
	for _, child := range n.Children {
		flattenRecursive(child, result)
	}
}

// resolveClip returns how much of wf is cut off by its ancestors, or nil
// when it is fully inside all of them.
func resolveClip(wf Wireframe, parents []*Wireframe) *Clip {
	top, left := wf.Y, wf.X
	bottom, right := wf.Y+wf.Height, wf.X+wf.Width
	for _, p := range parents {
		if p == nil {
			continue
		}
		top = max(top, p.Y)
		left = max(left, p.X)
		bottom = min(bottom, p.Y+p.Height)
		right = min(right, p.X+p.Width)
	}
	clip := Clip{
		Top:    max(0, top-wf.Y),
		Left:   max(0, left-wf.X),
		Bottom: max(0, wf.Y+wf.Height-bottom),
		Right:  max(0, wf.X+wf.Width-right),
	}
	if clip == (Clip{}) {
		return nil
	}
	return &clip
}

// visibleBounds returns the wireframe bounds after applying its clip.
func visibleBounds(wf Wireframe) [4]int64 {
	b := wf.Bounds()
	if wf.Clip == nil {
		return b
	}
	return [4]int64{
		b[0] + wf.Clip.Left,
		b[1] + wf.Clip.Top,
		b[2] - wf.Clip.Left - wf.Clip.Right,
		b[3] - wf.Clip.Top - wf.Clip.Bottom,
	}
}

func isValidWireframe(wf Wireframe) bool {
	vb := visibleBounds(wf)
	if vb[2] <= 0 || vb[3] <= 0 {
		return false
	}
	if wf.Type == WireframeShape && wf.ShapeStyle == nil && wf.Border == nil {
		return false
	}
	return true
}

func filterInvalid(wireframes []Wireframe) []Wireframe {
	result := make([]Wireframe, 0, len(wireframes))
	for i, wf := range wireframes {
		if !isValidWireframe(wf) || isCovered(wf, wireframes[i+1:]) {
			continue
		}
		result = append(result, wf)
	}
	return result
}

func isCovered(wf Wireframe, above []Wireframe) bool {
	vb := visibleBounds(wf)
	for _, top := range above {
		if top.IsOpaque() && boundsIntersect(top.Bounds(), vb) && boundsContain(top.Bounds(), vb) {
			return true
		}
	}
	return false
}
