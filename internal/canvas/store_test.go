package canvas

import (
	"reflect"
	"testing"

	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st := &State{
		Artboards: []Artboard{
			{ID: "board-a", Name: "A", Width: 1000, Height: 1000, Background: "#ffffff"},
			{ID: "board-b", Name: "B", Width: 500, Height: 500, Background: "#ffffff"},
		},
		Fonts:              []Font{},
		Elements:           []*Element{},
		SelectedArtboardID: "board-a",
		SelectedElementIDs: []string{},
		Settings:           DefaultSettings(),
	}
	return NewStore(st)
}

func addShape(t *testing.T, s *Store, id, boardID string, x, y, w, h float64) string {
	t.Helper()
	got, ok := s.AddElement(boardID, Element{
		ID:       id,
		Type:     TypeShape,
		Position: geometry.Point{X: x, Y: y},
		Size:     geometry.Size{Width: w, Height: h},
	})
	if !ok {
		t.Fatalf("AddElement(%s) rejected", id)
	}
	return got
}

func layersOn(s *Store, boardID string) []int {
	var out []int
	for _, el := range s.ElementsOn(boardID) {
		out = append(out, el.Layer)
	}
	return out
}

func TestAddElementAssignsLayerAndSelection(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-b", 0, 0, 50, 50)
	addShape(t, s, "el-2", "board-b", 10, 10, 50, 50)

	el1, _ := s.Element("el-1")
	el2, _ := s.Element("el-2")
	if el1.Layer != 0 || el2.Layer != 1 {
		t.Errorf("layers = %d, %d, want 0, 1", el1.Layer, el2.Layer)
	}
	if got := s.State().SelectedArtboardID; got != "board-b" {
		t.Errorf("SelectedArtboardID = %q, want board-b", got)
	}
	if got := s.State().SelectedElementIDs; !reflect.DeepEqual(got, []string{"el-2"}) {
		t.Errorf("SelectedElementIDs = %v, want [el-2]", got)
	}
}

func TestAddElementUnknownArtboard(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.AddElement("nope", Element{Type: TypeShape}); ok {
		t.Fatal("AddElement on unknown artboard applied")
	}
	if past, _ := s.HistoryDepth(); past != 0 {
		t.Errorf("history depth = %d after rejected add, want 0", past)
	}
}

func TestLayerDensityAfterRemoval(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"el-1", "el-2", "el-3", "el-4"} {
		addShape(t, s, id, "board-a", 0, 0, 40, 40)
	}
	if !s.RemoveElements([]string{"el-2", "el-3"}) {
		t.Fatal("RemoveElements rejected")
	}

	if got := layersOn(s, "board-a"); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("layers after removal = %v, want [0 1]", got)
	}
	el1, _ := s.Element("el-1")
	el4, _ := s.Element("el-4")
	if el1.Layer != 0 || el4.Layer != 1 {
		t.Errorf("relative order lost: el-1=%d el-4=%d", el1.Layer, el4.Layer)
	}
}

func TestUndoRedoInverse(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 100, 100, 200, 200)

	before := capture(s.State())
	pos := geometry.Point{X: 300, Y: 250}
	if !s.UpdateElement("el-1", ElementUpdate{Position: &pos}) {
		t.Fatal("UpdateElement rejected")
	}
	after := capture(s.State())

	if !s.Undo() {
		t.Fatal("Undo reported nothing to undo")
	}
	if got := capture(s.State()); !reflect.DeepEqual(got, before) {
		t.Errorf("undo did not restore prior state:\n got %+v\nwant %+v", got, before)
	}
	if !s.Redo() {
		t.Fatal("Redo reported nothing to redo")
	}
	if got := capture(s.State()); !reflect.DeepEqual(got, after) {
		t.Errorf("redo did not restore mutated state:\n got %+v\nwant %+v", got, after)
	}
}

func TestNewEditInvalidatesRedo(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 0, 0, 40, 40)
	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	if !s.CanRedo() {
		t.Fatal("expected redo available after undo")
	}
	addShape(t, s, "el-2", "board-a", 0, 0, 40, 40)
	if s.CanRedo() {
		t.Error("future stack not cleared by fresh mutation")
	}
}

func TestHistoryCap(t *testing.T) {
	s := newTestStore(t)
	colors := []string{"#111111", "#222222"}
	for i := 0; i < maxHistoryDepth+20; i++ {
		s.UpdateArtboardBackground("board-a", colors[i%2])
	}
	past, _ := s.HistoryDepth()
	if past != maxHistoryDepth {
		t.Fatalf("history depth = %d, want %d", past, maxHistoryDepth)
	}
	for i := 0; i < maxHistoryDepth; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed with entries remaining", i)
		}
	}
	if s.Undo() {
		t.Error("undo past the cap succeeded")
	}
}

func TestBoundsClamping(t *testing.T) {
	tests := []struct {
		name     string
		pos      geometry.Point
		size     geometry.Size
		wantPos  geometry.Point
		wantSize geometry.Size
	}{
		{"negative position", geometry.Point{X: -50, Y: -20}, geometry.Size{Width: 100, Height: 100}, geometry.Point{}, geometry.Size{Width: 100, Height: 100}},
		{"past right edge", geometry.Point{X: 980, Y: 0}, geometry.Size{Width: 100, Height: 100}, geometry.Point{X: 900, Y: 0}, geometry.Size{Width: 100, Height: 100}},
		{"oversized", geometry.Point{X: 0, Y: 0}, geometry.Size{Width: 1500, Height: 2500}, geometry.Point{}, geometry.Size{Width: 1000, Height: 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			addShape(t, s, "el-1", "board-a", 0, 0, 100, 100)
			if !s.UpdateElement("el-1", ElementUpdate{Position: &tt.pos, Size: &tt.size}) {
				t.Fatal("UpdateElement rejected")
			}
			el, _ := s.Element("el-1")
			if el.Position != tt.wantPos || el.Size != tt.wantSize {
				t.Errorf("got pos=%+v size=%+v, want pos=%+v size=%+v", el.Position, el.Size, tt.wantPos, tt.wantSize)
			}
		})
	}
}

func TestRemoveArtboardCascade(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-a1", "board-a", 0, 0, 40, 40)
	addShape(t, s, "el-a2", "board-a", 10, 10, 40, 40)
	addShape(t, s, "el-b1", "board-b", 0, 0, 40, 40)
	s.SetActiveArtboard("board-a")
	s.SelectElement("el-a1", SelectOptions{})

	if !s.RemoveArtboard("board-a") {
		t.Fatal("RemoveArtboard rejected")
	}
	if len(s.State().Artboards) != 1 {
		t.Fatalf("artboard count = %d, want 1", len(s.State().Artboards))
	}
	for _, id := range []string{"el-a1", "el-a2"} {
		if _, ok := s.Element(id); ok {
			t.Errorf("element %s survived artboard removal", id)
		}
	}
	if _, ok := s.Element("el-b1"); !ok {
		t.Error("element on surviving artboard was deleted")
	}
	if got := s.State().SelectedArtboardID; got != "board-b" {
		t.Errorf("SelectedArtboardID = %q, want board-b", got)
	}
	if got := s.State().SelectedElementIDs; len(got) != 0 {
		t.Errorf("selection not narrowed: %v", got)
	}
}

func TestRemoveLastArtboardRejected(t *testing.T) {
	s := newTestStore(t)
	if !s.RemoveArtboard("board-b") {
		t.Fatal("first removal rejected")
	}
	if s.RemoveArtboard("board-a") {
		t.Fatal("last artboard was removed")
	}
	if len(s.State().Artboards) != 1 {
		t.Errorf("artboard count = %d, want 1", len(s.State().Artboards))
	}
}

func TestLayerReordering(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "bottom", "board-a", 0, 0, 40, 40)
	addShape(t, s, "middle", "board-a", 0, 0, 40, 40)
	addShape(t, s, "top", "board-a", 0, 0, 40, 40)

	if !s.BringElementForward("bottom") {
		t.Fatal("BringElementForward rejected")
	}
	bottom, _ := s.Element("bottom")
	middle, _ := s.Element("middle")
	if bottom.Layer != 1 || middle.Layer != 0 {
		t.Errorf("after raise: bottom=%d middle=%d, want 1, 0", bottom.Layer, middle.Layer)
	}

	if s.BringElementForward("top") {
		t.Error("raising the top element should be a no-op")
	}
	if s.SendElementBackward("middle") {
		t.Error("lowering the bottom element should be a no-op")
	}
	past, _ := s.HistoryDepth()
	if !s.SendElementBackward("bottom") {
		t.Fatal("SendElementBackward rejected")
	}
	if got, _ := s.HistoryDepth(); got != past+1 {
		t.Errorf("history depth = %d, want %d", got, past+1)
	}
}

func TestSelectElementModes(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 0, 0, 40, 40)
	addShape(t, s, "el-2", "board-a", 0, 0, 40, 40)
	addShape(t, s, "el-3", "board-a", 0, 0, 40, 40)

	steps := []struct {
		id   string
		opts SelectOptions
		want []string
	}{
		{"el-1", SelectOptions{}, []string{"el-1"}},
		{"el-2", SelectOptions{Append: true}, []string{"el-1", "el-2"}},
		{"el-2", SelectOptions{Append: true}, []string{"el-1", "el-2"}},
		{"el-2", SelectOptions{Append: true, Toggle: true}, []string{"el-1"}},
		{"el-3", SelectOptions{Append: true, Toggle: true}, []string{"el-1", "el-3"}},
		{"el-2", SelectOptions{}, []string{"el-2"}},
		{"", SelectOptions{}, []string{}},
	}
	for i, step := range steps {
		s.SelectElement(step.id, step.opts)
		if got := s.State().SelectedElementIDs; !reflect.DeepEqual(got, step.want) {
			t.Fatalf("step %d: selection = %v, want %v", i, got, step.want)
		}
	}

	if s.SelectElement("ghost", SelectOptions{}) {
		t.Error("selecting an unknown id should be a no-op")
	}
}

func TestDuplicateElement(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 10, 20, 100, 100)

	sameID, ok := s.DuplicateElementToArtboard("el-1", "board-a")
	if !ok {
		t.Fatal("same-artboard duplicate rejected")
	}
	dup, _ := s.Element(sameID)
	if dup.Position.X != 34 || dup.Position.Y != 44 {
		t.Errorf("same-artboard duplicate at %+v, want (34, 44)", dup.Position)
	}
	if dup.Layer != 1 {
		t.Errorf("duplicate layer = %d, want 1", dup.Layer)
	}
	if got := s.State().SelectedElementIDs; !reflect.DeepEqual(got, []string{sameID}) {
		t.Errorf("selection = %v, want [%s]", got, sameID)
	}

	pos := geometry.Point{X: 900, Y: 900}
	s.UpdateElement("el-1", ElementUpdate{Position: &pos})
	crossID, ok := s.DuplicateElementToArtboard("el-1", "board-b")
	if !ok {
		t.Fatal("cross-artboard duplicate rejected")
	}
	cross, _ := s.Element(crossID)
	if cross.ArtboardID != "board-b" {
		t.Errorf("duplicate artboard = %q, want board-b", cross.ArtboardID)
	}
	if cross.Position.X != 400 || cross.Position.Y != 400 {
		t.Errorf("cross-artboard duplicate not clamped: %+v", cross.Position)
	}
	if got := s.State().SelectedArtboardID; got != "board-b" {
		t.Errorf("SelectedArtboardID = %q, want board-b", got)
	}
}

func TestToggleVisibilityFromUnset(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 0, 0, 40, 40)

	el, _ := s.Element("el-1")
	if !el.IsVisible() {
		t.Fatal("fresh element should report visible")
	}
	s.ToggleElementVisibility("el-1")
	if el.Visible == nil || *el.Visible {
		t.Error("first toggle from unset should hide")
	}
	s.ToggleElementVisibility("el-1")
	if !el.IsVisible() {
		t.Error("second toggle should show again")
	}
}

func TestRemoveFontClearsReferences(t *testing.T) {
	s := newTestStore(t)
	fontID := s.AddFont(Font{Name: "Display", Format: "woff2"})
	if _, ok := s.AddElement("board-a", Element{
		ID:    "caption",
		Type:  TypeText,
		Size:  geometry.Size{Width: 200, Height: 50},
		Props: &TextProps{Text: "hello", FontID: fontID, FontSize: 24},
	}); !ok {
		t.Fatal("AddElement rejected")
	}

	if !s.RemoveFont(fontID) {
		t.Fatal("RemoveFont rejected")
	}
	el, ok := s.Element("caption")
	if !ok {
		t.Fatal("text element deleted by font removal")
	}
	if got := el.Text().FontID; got != "" {
		t.Errorf("fontId = %q after font removal, want empty", got)
	}
	if s.RemoveFont(fontID) {
		t.Error("second removal of the same font applied")
	}
}

func TestNudgeSelected(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "free", "board-a", 100, 100, 40, 40)
	addShape(t, s, "pinned", "board-a", 200, 200, 40, 40)
	s.ToggleElementLock("pinned")
	s.SelectElement("free", SelectOptions{})
	s.SelectElement("pinned", SelectOptions{Append: true})

	if !s.NudgeSelected(1, 0, true) {
		t.Fatal("NudgeSelected rejected")
	}
	free, _ := s.Element("free")
	pinned, _ := s.Element("pinned")
	if free.Position.X != 110 {
		t.Errorf("free.X = %v, want 110 (big nudge is ×10)", free.Position.X)
	}
	if pinned.Position.X != 200 {
		t.Errorf("locked element moved to %v", pinned.Position.X)
	}

	s.SelectElement("", SelectOptions{})
	if s.NudgeSelected(1, 0, false) {
		t.Error("nudge with empty selection applied")
	}
}

func TestUpdateUnknownElementNoHistory(t *testing.T) {
	s := newTestStore(t)
	past, _ := s.HistoryDepth()
	pos := geometry.Point{X: 1, Y: 1}
	if s.UpdateElement("ghost", ElementUpdate{Position: &pos}) {
		t.Fatal("update of unknown id applied")
	}
	if got, _ := s.HistoryDepth(); got != past {
		t.Errorf("history depth changed on rejected update: %d -> %d", past, got)
	}
}

func TestGestureCoalescing(t *testing.T) {
	s := newTestStore(t)
	addShape(t, s, "el-1", "board-a", 0, 0, 40, 40)
	past, _ := s.HistoryDepth()

	s.BeginGesture()
	for _, x := range []float64{10, 20, 30} {
		pos := geometry.Point{X: x, Y: 0}
		s.UpdateElement("el-1", ElementUpdate{Position: &pos})
	}
	s.EndGesture()

	if got, _ := s.HistoryDepth(); got != past+1 {
		t.Fatalf("history depth = %d after gesture, want %d", got, past+1)
	}
	if !s.Undo() {
		t.Fatal("Undo failed")
	}
	el, _ := s.Element("el-1")
	if el.Position.X != 0 {
		t.Errorf("undo landed at x=%v, want 0 (whole gesture as one step)", el.Position.X)
	}
}

func TestAttachLayoutReplace(t *testing.T) {
	s := NewStore(nil)
	boards := []Artboard{{ID: "gen-1", Name: "320×480 - Hero Top", Width: 320, Height: 480, Background: "#ffffff"}}
	els := []*Element{{
		ID:         "gen-el",
		Name:       "Headline",
		ArtboardID: "gen-1",
		Type:       TypeText,
		Size:       geometry.Size{Width: 280, Height: 60},
		Opacity:    1,
		Props:      &TextProps{Text: "Win Big", FontSize: 32},
	}}

	if !s.AttachLayout(boards, els, true) {
		t.Fatal("AttachLayout rejected")
	}
	if got := len(s.State().Artboards); got != 1 {
		t.Fatalf("artboard count = %d, want 1", got)
	}
	if got := s.State().SelectedArtboardID; got != "gen-1" {
		t.Errorf("SelectedArtboardID = %q, want gen-1", got)
	}
	if _, ok := s.Element("gen-el"); !ok {
		t.Error("generated element not indexed")
	}
	if s.AttachLayout(nil, nil, false) {
		t.Error("empty layout applied")
	}
}
