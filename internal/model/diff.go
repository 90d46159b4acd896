package model

import "sort"

// MutationData is the payload of an incremental mutation record. Entries are
// ordered removes, then adds, then updates; removes follow the previous
// snapshot order, adds and updates the new snapshot order.
type MutationData struct {
	Source  IncrementalSource `yaml:"source"            json:"source"`
	Adds    []Add             `yaml:"adds,omitempty"    json:"adds,omitempty"`
	Removes []Remove          `yaml:"removes,omitempty" json:"removes,omitempty"`
	Updates []Update          `yaml:"updates,omitempty" json:"updates,omitempty"`
}

// Add inserts Wireframe right after PreviousID (at the front when nil).
type Add struct {
	PreviousID *int64    `yaml:"previousId,omitempty" json:"previousId,omitempty"`
	Wireframe  Wireframe `yaml:"wireframe"            json:"wireframe"`
}

type Remove struct {
	ID int64 `yaml:"id" json:"id"`
}

// Attribute groups that can be reset to nothing by an Update.
const (
	AttrClip         = "clip"
	AttrShapeStyle   = "shapeStyle"
	AttrBorder       = "border"
	AttrTextStyle    = "textStyle"
	AttrTextPosition = "textPosition"
)

// Update carries only the attributes that changed for an existing wireframe.
type Update struct {
	ID           int64         `yaml:"id"                     json:"id"`
	Type         WireframeType `yaml:"type"                   json:"type"`
	X            *int64        `yaml:"x,omitempty"            json:"x,omitempty"`
	Y            *int64        `yaml:"y,omitempty"            json:"y,omitempty"`
	Width        *int64        `yaml:"width,omitempty"        json:"width,omitempty"`
	Height       *int64        `yaml:"height,omitempty"       json:"height,omitempty"`
	Clip         *Clip         `yaml:"clip,omitempty"         json:"clip,omitempty"`
	ShapeStyle   *ShapeStyle   `yaml:"shapeStyle,omitempty"   json:"shapeStyle,omitempty"`
	Border       *Border       `yaml:"border,omitempty"       json:"border,omitempty"`
	Text         *string       `yaml:"text,omitempty"         json:"text,omitempty"`
	TextStyle    *TextStyle    `yaml:"textStyle,omitempty"    json:"textStyle,omitempty"`
	TextPosition *TextPosition `yaml:"textPosition,omitempty" json:"textPosition,omitempty"`
	Base64       *string       `yaml:"base64,omitempty"       json:"base64,omitempty"`
	MimeType     *string       `yaml:"mimeType,omitempty"     json:"mimeType,omitempty"`
	IsEmpty      *bool         `yaml:"isEmpty,omitempty"      json:"isEmpty,omitempty"`
	Unset        []string      `yaml:"unset,omitempty"        json:"unset,omitempty"`
}

// IsEmpty reports whether the mutation carries no entries.
func (m MutationData) IsEmpty() bool {
	return len(m.Adds) == 0 && len(m.Removes) == 0 && len(m.Updates) == 0
}

// ResolveMutations compares two flattened snapshots and returns the minimal
// mutation turning prev into curr, or nil when they are identical.
// Wireframes are matched by ID. A wireframe whose type changed, or whose
// position relative to the other survivors changed, is removed and re-added.
func ResolveMutations(prev, curr []Wireframe) *MutationData {
	prevIndex := make(map[int64]int, len(prev))
	for i, wf := range prev {
		if _, dup := prevIndex[wf.ID]; !dup {
			prevIndex[wf.ID] = i
		}
	}

	// Candidates that can stay in place, in current order.
	var candidates []int
	seen := make(map[int64]bool, len(curr))
	for j, wf := range curr {
		if seen[wf.ID] {
			continue
		}
		seen[wf.ID] = true
		if i, ok := prevIndex[wf.ID]; ok && prev[i].Type == wf.Type {
			candidates = append(candidates, j)
		}
	}
	kept := stableSubset(candidates, func(j int) int { return prevIndex[curr[j].ID] })

	var data MutationData
	keptPrev := make(map[int]bool, len(kept))
	for j := range kept {
		keptPrev[prevIndex[curr[j].ID]] = true
	}
	for i, wf := range prev {
		if !keptPrev[i] {
			data.Removes = append(data.Removes, Remove{ID: wf.ID})
		}
	}
	for j, wf := range curr {
		if kept[j] {
			continue
		}
		add := Add{Wireframe: wf}
		if j > 0 {
			id := curr[j-1].ID
			add.PreviousID = &id
		}
		data.Adds = append(data.Adds, add)
	}
	for j, wf := range curr {
		if !kept[j] {
			continue
		}
		if upd, changed := resolveUpdate(prev[prevIndex[wf.ID]], wf); changed {
			data.Updates = append(data.Updates, upd)
		}
	}

	if data.IsEmpty() {
		return nil
	}
	data.Source = SourceMutation
	return &data
}

// stableSubset returns the indices forming the longest subsequence of
// candidates whose keys are increasing. Those keep their position; every
// other candidate has moved.
func stableSubset(candidates []int, key func(int) int) map[int]bool {
	n := len(candidates)
	tails := make([]int, 0, n) // positions in candidates
	prevLink := make([]int, n)
	for p := range candidates {
		k := key(candidates[p])
		pos := sort.Search(len(tails), func(t int) bool { return key(candidates[tails[t]]) >= k })
		if pos > 0 {
			prevLink[p] = tails[pos-1]
		} else {
			prevLink[p] = -1
		}
		if pos == len(tails) {
			tails = append(tails, p)
		} else {
			tails[pos] = p
		}
	}
	kept := make(map[int]bool, len(tails))
	if len(tails) == 0 {
		return kept
	}
	for p := tails[len(tails)-1]; p >= 0; p = prevLink[p] {
		kept[candidates[p]] = true
	}
	return kept
}

func resolveUpdate(prev, curr Wireframe) (Update, bool) {
	upd := Update{ID: curr.ID, Type: curr.Type}
	if prev.Equal(curr) {
		return upd, false
	}
	if prev.X != curr.X {
		upd.X = ptr(curr.X)
	}
	if prev.Y != curr.Y {
		upd.Y = ptr(curr.Y)
	}
	if prev.Width != curr.Width {
		upd.Width = ptr(curr.Width)
	}
	if prev.Height != curr.Height {
		upd.Height = ptr(curr.Height)
	}
	if !equalPtr(prev.Clip, curr.Clip) {
		if curr.Clip == nil {
			upd.Unset = append(upd.Unset, AttrClip)
		} else {
			upd.Clip = ptr(*curr.Clip)
		}
	}
	if !equalPtr(prev.ShapeStyle, curr.ShapeStyle) {
		if curr.ShapeStyle == nil {
			upd.Unset = append(upd.Unset, AttrShapeStyle)
		} else {
			upd.ShapeStyle = ptr(*curr.ShapeStyle)
		}
	}
	if !equalPtr(prev.Border, curr.Border) {
		if curr.Border == nil {
			upd.Unset = append(upd.Unset, AttrBorder)
		} else {
			upd.Border = ptr(*curr.Border)
		}
	}
	if prev.Text != curr.Text {
		upd.Text = ptr(curr.Text)
	}
	if !equalPtr(prev.TextStyle, curr.TextStyle) {
		if curr.TextStyle == nil {
			upd.Unset = append(upd.Unset, AttrTextStyle)
		} else {
			upd.TextStyle = ptr(*curr.TextStyle)
		}
	}
	if !equalTextPosition(prev.TextPosition, curr.TextPosition) {
		if curr.TextPosition == nil {
			upd.Unset = append(upd.Unset, AttrTextPosition)
		} else {
			upd.TextPosition = cloneTextPosition(curr.TextPosition)
		}
	}
	if prev.Base64 != curr.Base64 {
		upd.Base64 = ptr(curr.Base64)
	}
	if prev.MimeType != curr.MimeType {
		upd.MimeType = ptr(curr.MimeType)
	}
	if prev.IsEmpty != curr.IsEmpty {
		upd.IsEmpty = ptr(curr.IsEmpty)
	}
	return upd, true
}

// ApplyMutations replays data on top of prev and returns the resulting
// snapshot. prev is not modified.
func ApplyMutations(prev []Wireframe, data *MutationData) []Wireframe {
	result := make([]Wireframe, 0, len(prev))
	if data == nil {
		return append(result, prev...)
	}

	// Only the first occurrence of an id can survive a mutation, so the
	// removes for an id take its last occurrences.
	removes := make(map[int64]int, len(data.Removes))
	for _, r := range data.Removes {
		removes[r.ID]++
	}
	occurrences := make(map[int64]int, len(prev))
	for _, wf := range prev {
		occurrences[wf.ID]++
	}
	seen := make(map[int64]int, len(prev))
	for _, wf := range prev {
		n := seen[wf.ID]
		seen[wf.ID]++
		if n < occurrences[wf.ID]-removes[wf.ID] {
			result = append(result, wf)
		}
	}

	for _, add := range data.Adds {
		pos := 0
		if add.PreviousID != nil {
			for i, wf := range result {
				if wf.ID == *add.PreviousID {
					pos = i + 1
					break
				}
			}
		}
		result = append(result, Wireframe{})
		copy(result[pos+1:], result[pos:])
		result[pos] = add.Wireframe
	}

	for _, upd := range data.Updates {
		for i := range result {
			if result[i].ID == upd.ID {
				result[i] = patch(result[i], upd)
				break
			}
		}
	}
	return result
}

func patch(wf Wireframe, upd Update) Wireframe {
	if upd.X != nil {
		wf.X = *upd.X
	}
	if upd.Y != nil {
		wf.Y = *upd.Y
	}
	if upd.Width != nil {
		wf.Width = *upd.Width
	}
	if upd.Height != nil {
		wf.Height = *upd.Height
	}
	if upd.Clip != nil {
		wf.Clip = ptr(*upd.Clip)
	}
	if upd.ShapeStyle != nil {
		wf.ShapeStyle = ptr(*upd.ShapeStyle)
	}
	if upd.Border != nil {
		wf.Border = ptr(*upd.Border)
	}
	if upd.Text != nil {
		wf.Text = *upd.Text
	}
	if upd.TextStyle != nil {
		wf.TextStyle = ptr(*upd.TextStyle)
	}
	if upd.TextPosition != nil {
		wf.TextPosition = cloneTextPosition(upd.TextPosition)
	}
	if upd.Base64 != nil {
		wf.Base64 = *upd.Base64
	}
	if upd.MimeType != nil {
		wf.MimeType = *upd.MimeType
	}
	if upd.IsEmpty != nil {
		wf.IsEmpty = *upd.IsEmpty
	}
	for _, attr := range upd.Unset {
		switch attr {
		case AttrClip:
			wf.Clip = nil
		case AttrShapeStyle:
			wf.ShapeStyle = nil
		case AttrBorder:
			wf.Border = nil
		case AttrTextStyle:
			wf.TextStyle = nil
		case AttrTextPosition:
			wf.TextPosition = nil
		}
	}
	return wf
}

func cloneTextPosition(tp *TextPosition) *TextPosition {
	c := &TextPosition{}
	if tp.Padding != nil {
		c.Padding = ptr(*tp.Padding)
	}
	if tp.Alignment != nil {
		c.Alignment = ptr(*tp.Alignment)
	}
	return c
}

func ptr[T any](v T) *T { return &v }
