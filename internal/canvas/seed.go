package canvas

import (
	"encoding/json"
	"sort"

	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

// NewDefaultState builds the two-artboard seed document a fresh project
// starts with: a story-sized and a feed-sized artboard, each carrying one
// slot placeholder in a shared sync group.
func NewDefaultState() *State {
	story := Artboard{
		ID:         typeid.NewArtboardID(),
		Name:       "Story",
		Width:      1080,
		Height:     1920,
		Background: "#ffffff",
	}
	feed := Artboard{
		ID:         typeid.NewArtboardID(),
		Name:       "Feed",
		Width:      1080,
		Height:     1080,
		Background: "#ffffff",
	}

	storySlot := &Element{
		ID:           typeid.NewElementID(),
		Name:         "Slot Machine",
		ArtboardID:   story.ID,
		Type:         TypeSlot,
		Position:     geometry.Point{X: 108, Y: 576},
		Size:         geometry.Size{Width: 864, Height: 768},
		Opacity:      1,
		TemplateRole: "slot",
		SyncGroup:    "slot",
		Props:        &SlotProps{},
	}
	feedSlot := &Element{
		ID:           typeid.NewElementID(),
		Name:         "Slot Machine",
		ArtboardID:   feed.ID,
		Type:         TypeSlot,
		Position:     geometry.Point{X: 108, Y: 324},
		Size:         geometry.Size{Width: 864, Height: 432},
		Opacity:      1,
		TemplateRole: "slot",
		SyncGroup:    "slot",
		Props:        &SlotProps{},
	}

	return &State{
		Artboards:          []Artboard{story, feed},
		Fonts:              []Font{},
		Elements:           []*Element{storySlot, feedSlot},
		SelectedArtboardID: story.ID,
		SelectedElementIDs: []string{},
		Settings:           DefaultSettings(),
	}
}

// Hydrate decodes a persisted document and repairs whatever it can.
// A payload that cannot be decoded, or that lost its artboards or elements
// arrays, is replaced wholesale with the default seed. Lesser damage is
// patched in place: orphaned elements are dropped, layers renormalized and
// the selection re-pointed at something that exists. The second return
// value reports whether anything had to be fixed.
func Hydrate(data []byte) (*State, bool) {
	var st State
	if len(data) == 0 || json.Unmarshal(data, &st) != nil {
		return NewDefaultState(), true
	}
	if len(st.Artboards) == 0 || st.Elements == nil {
		return NewDefaultState(), true
	}

	repaired := false
	if st.Fonts == nil {
		st.Fonts = []Font{}
		repaired = true
	}
	if st.Settings.Zoom == 0 {
		st.Settings = DefaultSettings()
		repaired = true
	}

	boards := make(map[string]bool, len(st.Artboards))
	for _, a := range st.Artboards {
		boards[a.ID] = true
	}

	kept := st.Elements[:0]
	for _, el := range st.Elements {
		if el == nil || !boards[el.ArtboardID] {
			repaired = true
			continue
		}
		if el.Props == nil {
			if el.Props = defaultProps(el.Type); el.Props == nil {
				repaired = true
				continue
			}
			repaired = true
		}
		kept = append(kept, el)
	}
	st.Elements = kept

	if normalizeLayers(&st) {
		repaired = true
	}

	if !boards[st.SelectedArtboardID] {
		st.SelectedArtboardID = st.Artboards[0].ID
		repaired = true
	}
	ids := make(map[string]bool, len(st.Elements))
	for _, el := range st.Elements {
		ids[el.ID] = true
	}
	sel := make([]string, 0, len(st.SelectedElementIDs))
	for _, id := range st.SelectedElementIDs {
		if ids[id] {
			sel = append(sel, id)
		}
	}
	if len(sel) != len(st.SelectedElementIDs) {
		repaired = true
	}
	st.SelectedElementIDs = sel

	return &st, repaired
}

// normalizeLayers rewrites every artboard's layers into a dense 0..N-1
// sequence preserving the existing relative order. Reports whether any
// layer changed.
func normalizeLayers(st *State) bool {
	changed := false
	for _, a := range st.Artboards {
		var onBoard []*Element
		for _, el := range st.Elements {
			if el.ArtboardID == a.ID {
				onBoard = append(onBoard, el)
			}
		}
		sortByLayer(onBoard)
		for i, el := range onBoard {
			if el.Layer != i {
				el.Layer = i
				changed = true
			}
		}
	}
	return changed
}

// sortByLayer orders elements by layer ascending, keeping the pool order
// for ties so normalization is stable.
func sortByLayer(els []*Element) {
	sort.SliceStable(els, func(i, j int) bool { return els[i].Layer < els[j].Layer })
}
