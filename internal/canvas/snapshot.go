package canvas

// maxHistoryDepth bounds the undo stack. The oldest snapshot is evicted
// once the stack is full, so very long sessions stay at a fixed memory
// ceiling instead of growing without bound.
const maxHistoryDepth = 100

// Snapshot is one history entry: a deep copy of the undoable portion of
// the state. Fonts, settings and the synchronized-editing flag are
// deliberately not captured, so undoing a geometry change never reverts an
// unrelated preference.
type Snapshot struct {
	Artboards          []Artboard
	Elements           []*Element
	SelectedArtboardID string
	SelectedElementIDs []string
}

// capture deep-copies the undoable fields of the state.
func capture(st *State) *Snapshot {
	snap := &Snapshot{
		Artboards:          make([]Artboard, len(st.Artboards)),
		Elements:           make([]*Element, len(st.Elements)),
		SelectedArtboardID: st.SelectedArtboardID,
		SelectedElementIDs: append([]string{}, st.SelectedElementIDs...),
	}
	copy(snap.Artboards, st.Artboards)
	for i, el := range st.Elements {
		snap.Elements[i] = el.Clone()
	}
	return snap
}

// restore writes the snapshot back into the state, deep-copying again so a
// snapshot can be replayed any number of times without aliasing the live
// elements.
func (s *Snapshot) restore(st *State) {
	st.Artboards = make([]Artboard, len(s.Artboards))
	copy(st.Artboards, s.Artboards)
	st.Elements = make([]*Element, len(s.Elements))
	for i, el := range s.Elements {
		st.Elements[i] = el.Clone()
	}
	st.SelectedArtboardID = s.SelectedArtboardID
	st.SelectedElementIDs = append([]string{}, s.SelectedElementIDs...)
}
