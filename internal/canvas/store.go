package canvas

import (
	"fmt"
	"slices"

	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

// Store is the canvas state machine: every mutation of a State goes
// through it. Each public operation validates its target first, pushes a
// pre-mutation snapshot, then applies. An unknown id is a silent no-op
// with no snapshot, so a stale reference from the UI can never corrupt
// history or crash the editor.
//
// The store assumes a single writer. Callers that share one store across
// goroutines (the session hub does) serialize access themselves.
type Store struct {
	state  *State
	past   []*Snapshot
	future []*Snapshot

	byID   map[string]*Element
	groups map[string]map[string]bool

	gestureActive  bool
	gestureSnapped bool
}

// NewStore wraps a state in a store, building the id and sync-group
// indexes. A nil state starts from the default seed.
func NewStore(st *State) *Store {
	if st == nil {
		st = NewDefaultState()
	}
	s := &Store{state: st}
	s.reindex()
	return s
}

// State returns the live aggregate. Callers must treat it as read-only;
// all writes go through store operations.
func (s *Store) State() *State { return s.state }

// Element looks up a live element by id.
func (s *Store) Element(id string) (*Element, bool) {
	el, ok := s.byID[id]
	return el, ok
}

// ArtboardByID looks up an artboard by id.
func (s *Store) ArtboardByID(id string) (Artboard, bool) {
	if i := s.artboardIndex(id); i >= 0 {
		return s.state.Artboards[i], true
	}
	return Artboard{}, false
}

// ElementsOn returns the elements of one artboard ordered by ascending
// layer. The slice is fresh; the elements are live.
func (s *Store) ElementsOn(artboardID string) []*Element {
	var els []*Element
	for _, el := range s.state.Elements {
		if el.ArtboardID == artboardID {
			els = append(els, el)
		}
	}
	sortByLayer(els)
	return els
}

// SynchronizedEditing reports whether cross-artboard propagation is on.
func (s *Store) SynchronizedEditing() bool { return s.state.SynchronizedEditing }

// SetSynchronizedEditing flips the propagation mode. The flag is not part
// of the undo snapshot, so this does not touch history.
func (s *Store) SetSynchronizedEditing(enabled bool) {
	s.state.SynchronizedEditing = enabled
}

// CanUndo reports whether the past stack is non-empty.
func (s *Store) CanUndo() bool { return len(s.past) > 0 }

// CanRedo reports whether the future stack is non-empty.
func (s *Store) CanRedo() bool { return len(s.future) > 0 }

// HistoryDepth returns the sizes of the past and future stacks.
func (s *Store) HistoryDepth() (past, future int) {
	return len(s.past), len(s.future)
}

// BeginGesture starts coalescing: until EndGesture, the whole run of
// mutations shares one history snapshot, so a drag undoes in one step
// instead of one per pointer frame.
func (s *Store) BeginGesture() {
	s.gestureActive = true
	s.gestureSnapped = false
}

// EndGesture stops coalescing.
func (s *Store) EndGesture() {
	s.gestureActive = false
	s.gestureSnapped = false
}

// push records the pre-mutation state and invalidates redo. During a
// gesture only the first mutation snapshots.
func (s *Store) push() {
	if s.gestureActive {
		if s.gestureSnapped {
			return
		}
		s.gestureSnapped = true
	}
	s.past = append(s.past, capture(s.state))
	if len(s.past) > maxHistoryDepth {
		s.past = append(s.past[:0], s.past[1:]...)
	}
	s.future = s.future[:0]
}

// Undo restores the most recent past snapshot, moving the current state
// onto the future stack. Reports false when there is nothing to undo.
func (s *Store) Undo() bool {
	if len(s.past) == 0 {
		return false
	}
	snap := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append(s.future, capture(s.state))
	snap.restore(s.state)
	s.reindex()
	return true
}

// Redo restores the most recent future snapshot, moving the current state
// back onto the past stack.
func (s *Store) Redo() bool {
	if len(s.future) == 0 {
		return false
	}
	snap := s.future[len(s.future)-1]
	s.future = s.future[:len(s.future)-1]
	s.past = append(s.past, capture(s.state))
	snap.restore(s.state)
	s.reindex()
	return true
}

// AddArtboard appends a new artboard, selects it and clears the element
// selection. Non-positive dimensions are rejected.
func (s *Store) AddArtboard(spec ArtboardSpec) (string, bool) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return "", false
	}
	s.push()
	a := Artboard{
		ID:         spec.ID,
		Name:       spec.Name,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: spec.Background,
	}
	if a.ID == "" {
		a.ID = typeid.NewArtboardID()
	}
	if a.Name == "" {
		a.Name = artboardDefaultName(a.Width, a.Height)
	}
	if a.Background == "" {
		a.Background = "#ffffff"
	}
	s.state.Artboards = append(s.state.Artboards, a)
	s.state.SelectedArtboardID = a.ID
	s.state.SelectedElementIDs = []string{}
	return a.ID, true
}

// UpdateArtboard merges a partial change into an artboard. Dimensions are
// immutable and absent from the update type.
func (s *Store) UpdateArtboard(id string, upd ArtboardUpdate) bool {
	i := s.artboardIndex(id)
	if i < 0 {
		return false
	}
	s.push()
	if upd.Name != nil {
		s.state.Artboards[i].Name = *upd.Name
	}
	if upd.Background != nil {
		s.state.Artboards[i].Background = *upd.Background
	}
	return true
}

// UpdateArtboardBackground changes one artboard's background color.
func (s *Store) UpdateArtboardBackground(id, color string) bool {
	return s.UpdateArtboard(id, ArtboardUpdate{Background: &color})
}

// RemoveArtboard deletes an artboard and every element on it. Removing
// the last artboard is rejected so the canvas always has at least one.
func (s *Store) RemoveArtboard(id string) bool {
	i := s.artboardIndex(id)
	if i < 0 || len(s.state.Artboards) == 1 {
		return false
	}
	s.push()
	s.state.Artboards = append(s.state.Artboards[:i], s.state.Artboards[i+1:]...)
	kept := s.state.Elements[:0]
	for _, el := range s.state.Elements {
		if el.ArtboardID == id {
			s.dropFromIndex(el)
			continue
		}
		kept = append(kept, el)
	}
	s.state.Elements = kept
	if s.state.SelectedArtboardID == id {
		s.state.SelectedArtboardID = s.state.Artboards[0].ID
	}
	s.filterSelection()
	return true
}

// SetActiveArtboard selects an artboard and narrows the element selection
// to elements living on it.
func (s *Store) SetActiveArtboard(id string) bool {
	if s.artboardIndex(id) < 0 {
		return false
	}
	s.push()
	s.state.SelectedArtboardID = id
	sel := s.state.SelectedElementIDs[:0]
	for _, eid := range s.state.SelectedElementIDs {
		if el, ok := s.byID[eid]; ok && el.ArtboardID == id {
			sel = append(sel, eid)
		}
	}
	s.state.SelectedElementIDs = sel
	return true
}

// AddElement places a new element on an artboard: id assigned when
// absent, layer set to the next free slot, geometry clamped into the
// artboard. The new element becomes the sole selection and its artboard
// becomes active.
func (s *Store) AddElement(artboardID string, el Element) (string, bool) {
	board, ok := s.artboard(artboardID)
	if !ok {
		return "", false
	}
	if el.Props == nil {
		el.Props = defaultProps(el.Type)
	}
	if el.Props == nil {
		return "", false
	}
	s.push()
	if el.ID == "" {
		el.ID = typeid.NewElementID()
	}
	if el.Name == "" {
		el.Name = elementDefaultName(el.Type)
	}
	if el.Opacity == 0 {
		el.Opacity = 1
	}
	el.ArtboardID = artboardID
	el.Layer = s.nextLayer(artboardID)
	el.Position, el.Size = geometry.ClampRect(el.Position, el.Size, float64(board.Width), float64(board.Height))

	added := el.Clone()
	s.state.Elements = append(s.state.Elements, added)
	s.byID[added.ID] = added
	s.addToGroup(added.SyncGroup, added.ID)
	s.state.SelectedArtboardID = artboardID
	s.state.SelectedElementIDs = []string{added.ID}
	return added.ID, true
}

// UpdateElement shallow-merges a partial change into an element, clamps
// the result into its artboard and, with synchronized editing on,
// propagates to sync-group peers on other artboards.
func (s *Store) UpdateElement(id string, upd ElementUpdate) bool {
	el, ok := s.byID[id]
	if !ok {
		return false
	}
	s.push()
	s.applyElementUpdate(el, upd)
	return true
}

// RemoveElement deletes one element (plus its sync-group peers when
// synchronized editing is on).
func (s *Store) RemoveElement(id string) bool {
	return s.RemoveElements([]string{id})
}

// RemoveElements deletes a batch of elements, expands the batch with
// sync-group peers when synchronized editing is on, renormalizes layers
// on affected artboards and narrows the selection to survivors.
func (s *Store) RemoveElements(ids []string) bool {
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		el, ok := s.byID[id]
		if !ok {
			continue
		}
		doomed[el.ID] = true
		if s.state.SynchronizedEditing && el.SyncGroup != "" {
			for peer := range s.groups[el.SyncGroup] {
				doomed[peer] = true
			}
		}
	}
	if len(doomed) == 0 {
		return false
	}
	s.push()
	kept := s.state.Elements[:0]
	for _, el := range s.state.Elements {
		if doomed[el.ID] {
			s.dropFromIndex(el)
			continue
		}
		kept = append(kept, el)
	}
	s.state.Elements = kept
	normalizeLayers(s.state)
	s.filterSelection()
	return true
}

// BringElementForward swaps the element with its immediate layer neighbor
// above. Already on top is a silent no-op.
func (s *Store) BringElementForward(id string) bool {
	el, ok := s.byID[id]
	if !ok {
		return false
	}
	var above *Element
	for _, other := range s.state.Elements {
		if other.ArtboardID != el.ArtboardID || other.Layer <= el.Layer {
			continue
		}
		if above == nil || other.Layer < above.Layer {
			above = other
		}
	}
	if above == nil {
		return false
	}
	s.push()
	el.Layer, above.Layer = above.Layer, el.Layer
	return true
}

// SendElementBackward swaps the element with its immediate layer neighbor
// below. Already at the bottom is a silent no-op.
func (s *Store) SendElementBackward(id string) bool {
	el, ok := s.byID[id]
	if !ok {
		return false
	}
	var below *Element
	for _, other := range s.state.Elements {
		if other.ArtboardID != el.ArtboardID || other.Layer >= el.Layer {
			continue
		}
		if below == nil || other.Layer > below.Layer {
			below = other
		}
	}
	if below == nil {
		return false
	}
	s.push()
	el.Layer, below.Layer = below.Layer, el.Layer
	return true
}

// SelectElement updates the element selection. An empty id clears it.
// Plain select replaces the selection, append adds, append+toggle flips
// membership (meta-click). The first entry stays the primary selection.
func (s *Store) SelectElement(id string, opts SelectOptions) bool {
	if id == "" {
		s.push()
		s.state.SelectedElementIDs = []string{}
		return true
	}
	if _, ok := s.byID[id]; !ok {
		return false
	}
	s.push()
	sel := s.state.SelectedElementIDs
	switch {
	case opts.Append && opts.Toggle:
		if i := slices.Index(sel, id); i >= 0 {
			s.state.SelectedElementIDs = append(sel[:i], sel[i+1:]...)
		} else {
			s.state.SelectedElementIDs = append(sel, id)
		}
	case opts.Append:
		if !slices.Contains(sel, id) {
			s.state.SelectedElementIDs = append(sel, id)
		}
	default:
		s.state.SelectedElementIDs = []string{id}
	}
	return true
}

// DuplicateElementToArtboard clones an element onto a target artboard
// with a fresh id and the target's next layer. A same-artboard duplicate
// is offset 24px on both axes so the copy doesn't hide the original; a
// cross-artboard duplicate keeps the source geometry, clamped into the
// target. The clone becomes the sole selection and the target artboard
// becomes active.
func (s *Store) DuplicateElementToArtboard(elementID, targetArtboardID string) (string, bool) {
	el, ok := s.byID[elementID]
	if !ok {
		return "", false
	}
	board, ok := s.artboard(targetArtboardID)
	if !ok {
		return "", false
	}
	s.push()
	clone := el.Clone()
	clone.ID = typeid.NewElementID()
	clone.ArtboardID = targetArtboardID
	clone.Layer = s.nextLayer(targetArtboardID)
	if targetArtboardID == el.ArtboardID {
		clone.Position.X += 24
		clone.Position.Y += 24
	}
	clone.Position, clone.Size = geometry.ClampRect(clone.Position, clone.Size, float64(board.Width), float64(board.Height))
	s.state.Elements = append(s.state.Elements, clone)
	s.byID[clone.ID] = clone
	s.addToGroup(clone.SyncGroup, clone.ID)
	s.state.SelectedArtboardID = targetArtboardID
	s.state.SelectedElementIDs = []string{clone.ID}
	return clone.ID, true
}

// AddFont upserts a font by id, assigning one when absent, and returns
// the id.
func (s *Store) AddFont(f Font) string {
	s.push()
	if f.ID == "" {
		f.ID = typeid.NewFontID()
	}
	for i := range s.state.Fonts {
		if s.state.Fonts[i].ID == f.ID {
			s.state.Fonts[i] = f
			return f.ID
		}
	}
	s.state.Fonts = append(s.state.Fonts, f)
	return f.ID
}

// RemoveFont deletes a font and clears fontId on any text element that
// referenced it. The elements themselves survive.
func (s *Store) RemoveFont(id string) bool {
	i := slices.IndexFunc(s.state.Fonts, func(f Font) bool { return f.ID == id })
	if i < 0 {
		return false
	}
	s.push()
	s.state.Fonts = append(s.state.Fonts[:i], s.state.Fonts[i+1:]...)
	for _, el := range s.state.Elements {
		if p := el.Text(); p != nil && p.FontID == id {
			p.FontID = ""
		}
	}
	return true
}

// UpdateSettings shallow-merges a partial settings change. Zoom and grid
// bounds are not re-validated here; callers clamp before submitting.
func (s *Store) UpdateSettings(upd SettingsUpdate) {
	s.push()
	if upd.SnapToGrid != nil {
		s.state.Settings.SnapToGrid = *upd.SnapToGrid
	}
	if upd.GridSize != nil {
		s.state.Settings.GridSize = *upd.GridSize
	}
	if upd.ShowGuides != nil {
		s.state.Settings.ShowGuides = *upd.ShowGuides
	}
	if upd.Zoom != nil {
		s.state.Settings.Zoom = *upd.Zoom
	}
}

// ToggleElementLock flips the lock flag, propagating to sync peers like
// any other update.
func (s *Store) ToggleElementLock(id string) bool {
	el, ok := s.byID[id]
	if !ok {
		return false
	}
	s.push()
	v := !el.Locked
	s.applyElementUpdate(el, ElementUpdate{Locked: &v})
	return true
}

// ToggleElementVisibility flips visibility. An unset flag counts as
// visible, so the first flip always hides.
func (s *Store) ToggleElementVisibility(id string) bool {
	el, ok := s.byID[id]
	if !ok {
		return false
	}
	s.push()
	v := !el.IsVisible()
	s.applyElementUpdate(el, ElementUpdate{Visible: &v})
	return true
}

// NudgeSelected moves every selected, unlocked element by (dx, dy),
// multiplied by 10 when big is set. One history entry covers the whole
// nudge. Reports false when nothing can move.
func (s *Store) NudgeSelected(dx, dy float64, big bool) bool {
	if big {
		dx *= 10
		dy *= 10
	}
	var targets []*Element
	for _, id := range s.state.SelectedElementIDs {
		if el, ok := s.byID[id]; ok && !el.Locked {
			targets = append(targets, el)
		}
	}
	if len(targets) == 0 {
		return false
	}
	s.push()
	for _, el := range targets {
		p := geometry.Point{X: el.Position.X + dx, Y: el.Position.Y + dy}
		s.applyElementUpdate(el, ElementUpdate{Position: &p})
	}
	return true
}

// AttachLayout installs a generated artboard+element set, either
// replacing the current boards and elements or appending to them. Fonts
// and settings are untouched either way. The first new artboard becomes
// active.
func (s *Store) AttachLayout(artboards []Artboard, elements []*Element, replace bool) bool {
	if len(artboards) == 0 {
		return false
	}
	s.push()
	if replace {
		s.state.Artboards = append([]Artboard(nil), artboards...)
		s.state.Elements = make([]*Element, 0, len(elements))
	} else {
		s.state.Artboards = append(s.state.Artboards, artboards...)
	}
	for _, el := range elements {
		s.state.Elements = append(s.state.Elements, el.Clone())
	}
	s.reindex()
	s.state.SelectedArtboardID = artboards[0].ID
	s.state.SelectedElementIDs = []string{}
	return true
}

// applyElementUpdate merges the update into the element and triggers
// sync-group propagation when the mode is on. Peers receive updates
// derived from this one, never re-propagated, so a group can't loop.
func (s *Store) applyElementUpdate(el *Element, upd ElementUpdate) {
	beforePos, beforeSize := el.Position, el.Size
	s.mergeElement(el, upd)
	if s.state.SynchronizedEditing && el.SyncGroup != "" {
		s.propagate(el, beforePos, beforeSize, upd)
	}
}

// mergeElement applies the non-nil update fields, reindexes a sync-group
// change and clamps geometry into the owning artboard. Variant fields
// that don't match the element's type are ignored, which also keeps the
// type immutable.
func (s *Store) mergeElement(el *Element, upd ElementUpdate) {
	if upd.Name != nil {
		el.Name = *upd.Name
	}
	if upd.Rotation != nil {
		el.Rotation = *upd.Rotation
	}
	if upd.Opacity != nil {
		el.Opacity = *upd.Opacity
	}
	if upd.Locked != nil {
		el.Locked = *upd.Locked
	}
	if upd.Visible != nil {
		v := *upd.Visible
		el.Visible = &v
	}
	if upd.TemplateRole != nil {
		el.TemplateRole = *upd.TemplateRole
	}
	if upd.SyncGroup != nil && *upd.SyncGroup != el.SyncGroup {
		s.removeFromGroup(el.SyncGroup, el.ID)
		el.SyncGroup = *upd.SyncGroup
		s.addToGroup(el.SyncGroup, el.ID)
	}
	if upd.Position != nil {
		el.Position = *upd.Position
	}
	if upd.Size != nil {
		el.Size = *upd.Size
	}
	if upd.Position != nil || upd.Size != nil {
		if board, ok := s.artboard(el.ArtboardID); ok {
			el.Position, el.Size = geometry.ClampRect(el.Position, el.Size, float64(board.Width), float64(board.Height))
		}
	}

	switch p := el.Props.(type) {
	case *ImageProps:
		if upd.Src != nil {
			p.Src = *upd.Src
		}
		if upd.Fit != nil {
			p.Fit = *upd.Fit
		}
		if upd.MaintainAspect != nil {
			p.MaintainAspect = *upd.MaintainAspect
		}
	case *TextProps:
		if upd.Text != nil {
			p.Text = *upd.Text
		}
		if upd.FontID != nil {
			p.FontID = *upd.FontID
		}
		if upd.FontSize != nil {
			p.FontSize = *upd.FontSize
		}
		if upd.FontWeight != nil {
			p.FontWeight = *upd.FontWeight
		}
		if upd.Color != nil {
			p.Color = *upd.Color
		}
		if upd.TextAlign != nil {
			p.TextAlign = *upd.TextAlign
		}
		if upd.LineHeight != nil {
			p.LineHeight = *upd.LineHeight
		}
		if upd.LetterSpacing != nil {
			p.LetterSpacing = *upd.LetterSpacing
		}
		if upd.AutoWidth != nil {
			p.AutoWidth = *upd.AutoWidth
		}
	case *ShapeProps:
		if upd.Fill != nil {
			p.Fill = *upd.Fill
		}
		if upd.BorderColor != nil {
			p.BorderColor = *upd.BorderColor
		}
		if upd.BorderWidth != nil {
			p.BorderWidth = *upd.BorderWidth
		}
		if upd.Radius != nil {
			p.Radius = *upd.Radius
		}
	}
}

// artboard returns a live pointer into the artboard slice, valid only
// until the slice next changes.
func (s *Store) artboard(id string) (*Artboard, bool) {
	if i := s.artboardIndex(id); i >= 0 {
		return &s.state.Artboards[i], true
	}
	return nil, false
}

func (s *Store) artboardIndex(id string) int {
	return slices.IndexFunc(s.state.Artboards, func(a Artboard) bool { return a.ID == id })
}

// nextLayer returns max existing layer + 1 on the artboard, or 0 when
// empty.
func (s *Store) nextLayer(artboardID string) int {
	next := 0
	for _, el := range s.state.Elements {
		if el.ArtboardID == artboardID && el.Layer >= next {
			next = el.Layer + 1
		}
	}
	return next
}

// filterSelection drops selected ids that no longer resolve to a live
// element.
func (s *Store) filterSelection() {
	sel := s.state.SelectedElementIDs[:0]
	for _, id := range s.state.SelectedElementIDs {
		if _, ok := s.byID[id]; ok {
			sel = append(sel, id)
		}
	}
	s.state.SelectedElementIDs = sel
}

func (s *Store) dropFromIndex(el *Element) {
	s.removeFromGroup(el.SyncGroup, el.ID)
	delete(s.byID, el.ID)
}

func elementDefaultName(t ElementType) string {
	switch t {
	case TypeImage:
		return "Image"
	case TypeText:
		return "Text"
	case TypeShape:
		return "Shape"
	case TypeSlot:
		return "Slot Machine"
	default:
		return "Element"
	}
}

func artboardDefaultName(width, height int) string {
	return fmt.Sprintf("%d×%d", width, height)
}
