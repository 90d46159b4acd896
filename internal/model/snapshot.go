package model

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// idMask keeps derived ids within the range a JSON number holds exactly.
const idMask = 1<<53 - 1

// ElementPath extends a parent path with one hierarchy step. The sibling
// index keeps two identical siblings apart.
func ElementPath(parentPath string, el Element, siblingIndex int) string {
	step := fmt.Sprintf("%s[%d]", el.Kind, siblingIndex)
	if parentPath == "" {
		return step
	}
	return parentPath + " > " + step
}

// WireframeID derives a stable wireframe identity for the index-th wireframe
// an element produces. Elements carrying an explicit ID keep it for their
// first wireframe; anonymous elements are identified by their hierarchy
// path, so repeated captures of an unchanged tree yield the same ids.
func WireframeID(el Element, path string, index int) int64 {
	base := el.ID
	if base == 0 {
		base = hashID(path)
	}
	if index == 0 {
		return base
	}
	return hashID(fmt.Sprintf("%d#%d", base, index))
}

func hashID(s string) int64 {
	sum := sha256.Sum256([]byte(s))
	id := int64(binary.BigEndian.Uint64(sum[:8]) & idMask)
	if id == 0 {
		id = 1
	}
	return id
}
