package session

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

func fixtureState() *canvas.State {
	return &canvas.State{
		Artboards: []canvas.Artboard{
			{ID: "board-a", Name: "A", Width: 1000, Height: 1000, Background: "#ffffff"},
			{ID: "board-b", Name: "B", Width: 500, Height: 500, Background: "#ffffff"},
		},
		Fonts:              []canvas.Font{},
		Elements:           []*canvas.Element{},
		SelectedArtboardID: "board-a",
		SelectedElementIDs: []string{},
		Settings:           canvas.DefaultSettings(),
	}
}

func newSessionStore(t *testing.T) *canvas.Store {
	t.Helper()
	return canvas.NewStore(fixtureState())
}

func shapeOp(opID, artboardID string) Operation {
	return Operation{
		ID:         opID,
		Type:       OpElementAdd,
		ArtboardID: artboardID,
		Element: &canvas.Element{
			Type:     canvas.TypeShape,
			Position: geometry.Point{X: 10, Y: 10},
			Size:     geometry.Size{Width: 40, Height: 40},
		},
	}
}

func mustApply(t *testing.T, s *canvas.Store, op Operation) json.RawMessage {
	t.Helper()
	result, applied, err := Apply(s, op)
	if err != nil {
		t.Fatalf("Apply(%s): %v", op.Type, err)
	}
	if !applied {
		t.Fatalf("Apply(%s) was a no-op", op.Type)
	}
	return result
}

func createdID(t *testing.T, result json.RawMessage, key string) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(result, &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out[key] == "" {
		t.Fatalf("result %s missing %s", result, key)
	}
	return out[key]
}

func TestApplyElementLifecycle(t *testing.T) {
	s := newSessionStore(t)

	elID := createdID(t, mustApply(t, s, shapeOp("op-1", "board-a")), "elementId")

	pos := geometry.Point{X: 200, Y: 300}
	mustApply(t, s, Operation{
		Type:      OpElementUpdate,
		ElementID: elID,
		Update:    &canvas.ElementUpdate{Position: &pos},
	})
	el, ok := s.Element(elID)
	if !ok || el.Position != pos {
		t.Fatalf("element after update = %+v, want position %v", el, pos)
	}

	mustApply(t, s, Operation{Type: OpElementRemove, ElementID: elID})

	// Removing again is a silent no-op, not an error.
	_, applied, err := Apply(s, Operation{Type: OpElementRemove, ElementID: elID})
	if err != nil {
		t.Fatalf("second remove errored: %v", err)
	}
	if applied {
		t.Fatal("second remove reported applied")
	}
}

func TestApplyReturnsCreatedIDs(t *testing.T) {
	s := newSessionStore(t)

	result := mustApply(t, s, Operation{
		Type:     OpArtboardAdd,
		Artboard: &canvas.ArtboardSpec{Name: "Banner", Width: 728, Height: 90},
	})
	boardID := createdID(t, result, "artboardId")
	if _, ok := s.ArtboardByID(boardID); !ok {
		t.Fatalf("created artboard %s not in store", boardID)
	}

	elID := createdID(t, mustApply(t, s, shapeOp("op-2", boardID)), "elementId")
	dup := mustApply(t, s, Operation{
		Type:             OpElementDuplicate,
		ElementID:        elID,
		TargetArtboardID: "board-b",
	})
	dupID := createdID(t, dup, "elementId")
	if dupID == elID {
		t.Fatalf("duplicate returned the source id %s", elID)
	}
}

func TestApplyMalformed(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		wantErr error
	}{
		{"unknown type", Operation{Type: "element.teleport"}, ErrUnknownOp},
		{"artboard add without spec", Operation{Type: OpArtboardAdd}, ErrBadOp},
		{"artboard update without patch", Operation{Type: OpArtboardUpdate, ArtboardID: "board-a"}, ErrBadOp},
		{"element add without element", Operation{Type: OpElementAdd, ArtboardID: "board-a"}, ErrBadOp},
		{"element update without id", Operation{Type: OpElementUpdate, Update: &canvas.ElementUpdate{}}, ErrBadOp},
		{"remove batch empty", Operation{Type: OpElementRemoveBatch}, ErrBadOp},
		{"sync mode without flag", Operation{Type: OpCanvasSyncMode}, ErrBadOp},
		{"font add without font", Operation{Type: OpFontAdd}, ErrBadOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSessionStore(t)
			_, applied, err := Apply(s, tt.op)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if applied {
				t.Fatal("malformed op reported applied")
			}
		})
	}
}

func TestApplySilentNoops(t *testing.T) {
	s := newSessionStore(t)
	elID := createdID(t, mustApply(t, s, shapeOp("op-1", "board-a")), "elementId")

	tests := []struct {
		name string
		op   Operation
	}{
		{"unknown element update", Operation{Type: OpElementUpdate, ElementID: "nope", Update: &canvas.ElementUpdate{}}},
		{"unknown artboard remove", Operation{Type: OpArtboardRemove, ArtboardID: "nope"}},
		{"forward at top", Operation{Type: OpElementForward, ElementID: elID}},
		{"backward at bottom", Operation{Type: OpElementBackward, ElementID: elID}},
		{"redo with empty future", Operation{Type: OpCanvasRedo}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, applied, err := Apply(s, tt.op)
			if err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
			if applied {
				t.Fatal("no-op reported applied")
			}
		})
	}
}

func TestApplyUndoRedo(t *testing.T) {
	s := newSessionStore(t)
	mustApply(t, s, shapeOp("op-1", "board-a"))

	mustApply(t, s, Operation{Type: OpCanvasUndo})
	if got := len(s.State().Elements); got != 0 {
		t.Fatalf("elements after undo = %d, want 0", got)
	}

	mustApply(t, s, Operation{Type: OpCanvasRedo})
	if got := len(s.State().Elements); got != 1 {
		t.Fatalf("elements after redo = %d, want 1", got)
	}

	_, applied, err := Apply(s, Operation{Type: OpCanvasRedo})
	if err != nil || applied {
		t.Fatalf("redo on empty future = (%v, %v), want no-op", applied, err)
	}
}

func TestApplyGestureCoalescing(t *testing.T) {
	s := newSessionStore(t)
	elID := createdID(t, mustApply(t, s, shapeOp("op-1", "board-a")), "elementId")

	mustApply(t, s, Operation{Type: OpGestureBegin})
	for _, x := range []float64{50, 90} {
		pos := geometry.Point{X: x, Y: 10}
		mustApply(t, s, Operation{Type: OpElementUpdate, ElementID: elID, Update: &canvas.ElementUpdate{Position: &pos}})
	}
	mustApply(t, s, Operation{Type: OpGestureEnd})

	// One snapshot for the whole drag, one for the add.
	if past, _ := s.HistoryDepth(); past != 2 {
		t.Fatalf("history depth = %d, want 2", past)
	}
	mustApply(t, s, Operation{Type: OpCanvasUndo})
	el, _ := s.Element(elID)
	if el.Position.X != 10 {
		t.Fatalf("position.X after undo = %v, want 10", el.Position.X)
	}
}

func TestApplySyncMode(t *testing.T) {
	s := newSessionStore(t)
	on := true
	mustApply(t, s, Operation{Type: OpCanvasSyncMode, Enabled: &on})
	if !s.SynchronizedEditing() {
		t.Fatal("synchronized editing not enabled")
	}
}
