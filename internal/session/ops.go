package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/gameplay"
)

var (
	ErrUnknownOp = errors.New("unknown operation type")
	ErrBadOp     = errors.New("malformed operation")
)

// Operation is one canvas mutation on the wire. Type selects the
// variant; only the fields that variant needs are set, everything else
// stays omitted.
type Operation struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`

	ArtboardID       string   `json:"artboardId,omitempty"`
	ElementID        string   `json:"elementId,omitempty"`
	ElementIDs       []string `json:"elementIds,omitempty"`
	TargetArtboardID string   `json:"targetArtboardId,omitempty"`
	FontID           string   `json:"fontId,omitempty"`
	Color            string   `json:"color,omitempty"`

	Artboard       *canvas.ArtboardSpec   `json:"artboard,omitempty"`
	ArtboardUpdate *canvas.ArtboardUpdate `json:"artboardUpdate,omitempty"`
	Element        *canvas.Element        `json:"element,omitempty"`
	Update         *canvas.ElementUpdate  `json:"update,omitempty"`
	Font           *canvas.Font           `json:"font,omitempty"`
	Settings       *canvas.SettingsUpdate `json:"settings,omitempty"`
	Options        *canvas.SelectOptions  `json:"options,omitempty"`

	// element.nudge
	Dx  float64 `json:"dx,omitempty"`
	Dy  float64 `json:"dy,omitempty"`
	Big bool    `json:"big,omitempty"`

	// canvas.syncMode
	Enabled *bool `json:"enabled,omitempty"`

	// slot.spin
	Symbols []gameplay.Symbol `json:"symbols,omitempty"`
}

// Operation type names. The canvas vocabulary on the wire: artboards,
// elements, fonts, settings, history and the sync mode toggle.
const (
	OpArtboardAdd        = "artboard.add"
	OpArtboardUpdate     = "artboard.update"
	OpArtboardBackground = "artboard.background"
	OpArtboardRemove     = "artboard.remove"
	OpArtboardSelect     = "artboard.select"

	OpElementAdd         = "element.add"
	OpElementUpdate      = "element.update"
	OpElementRemove      = "element.remove"
	OpElementRemoveBatch = "element.removeBatch"
	OpElementDuplicate   = "element.duplicate"
	OpElementForward     = "element.forward"
	OpElementBackward    = "element.backward"
	OpElementSelect      = "element.select"
	OpElementLock        = "element.lock"
	OpElementVisibility  = "element.visibility"
	OpElementNudge       = "element.nudge"

	OpFontAdd    = "font.add"
	OpFontRemove = "font.remove"

	OpSettingsUpdate = "settings.update"

	OpCanvasUndo     = "canvas.undo"
	OpCanvasRedo     = "canvas.redo"
	OpCanvasSyncMode = "canvas.syncMode"

	OpGestureBegin = "gesture.begin"
	OpGestureEnd   = "gesture.end"

	OpSlotSpin = "slot.spin"
)

// Apply runs one operation against the store. A nil error with
// applied=false means the canvas treated the op as a silent no-op
// (unknown target, boundary move); a non-nil error means the op itself
// was malformed and should be nacked. The result payload, when non-nil,
// rides in the ack.
func Apply(store *canvas.Store, op Operation) (result json.RawMessage, applied bool, err error) {
	switch op.Type {
	case OpArtboardAdd:
		if op.Artboard == nil {
			return nil, false, fmt.Errorf("%w: artboard.add needs artboard", ErrBadOp)
		}
		id, ok := store.AddArtboard(*op.Artboard)
		return idResult("artboardId", id, ok), ok, nil

	case OpArtboardUpdate:
		if op.ArtboardID == "" || op.ArtboardUpdate == nil {
			return nil, false, fmt.Errorf("%w: artboard.update needs artboardId and artboardUpdate", ErrBadOp)
		}
		return nil, store.UpdateArtboard(op.ArtboardID, *op.ArtboardUpdate), nil

	case OpArtboardBackground:
		if op.ArtboardID == "" || op.Color == "" {
			return nil, false, fmt.Errorf("%w: artboard.background needs artboardId and color", ErrBadOp)
		}
		return nil, store.UpdateArtboardBackground(op.ArtboardID, op.Color), nil

	case OpArtboardRemove:
		if op.ArtboardID == "" {
			return nil, false, fmt.Errorf("%w: artboard.remove needs artboardId", ErrBadOp)
		}
		return nil, store.RemoveArtboard(op.ArtboardID), nil

	case OpArtboardSelect:
		if op.ArtboardID == "" {
			return nil, false, fmt.Errorf("%w: artboard.select needs artboardId", ErrBadOp)
		}
		return nil, store.SetActiveArtboard(op.ArtboardID), nil

	case OpElementAdd:
		if op.ArtboardID == "" || op.Element == nil {
			return nil, false, fmt.Errorf("%w: element.add needs artboardId and element", ErrBadOp)
		}
		id, ok := store.AddElement(op.ArtboardID, *op.Element)
		return idResult("elementId", id, ok), ok, nil

	case OpElementUpdate:
		if op.ElementID == "" || op.Update == nil {
			return nil, false, fmt.Errorf("%w: element.update needs elementId and update", ErrBadOp)
		}
		return nil, store.UpdateElement(op.ElementID, *op.Update), nil

	case OpElementRemove:
		if op.ElementID == "" {
			return nil, false, fmt.Errorf("%w: element.remove needs elementId", ErrBadOp)
		}
		return nil, store.RemoveElement(op.ElementID), nil

	case OpElementRemoveBatch:
		if len(op.ElementIDs) == 0 {
			return nil, false, fmt.Errorf("%w: element.removeBatch needs elementIds", ErrBadOp)
		}
		return nil, store.RemoveElements(op.ElementIDs), nil

	case OpElementDuplicate:
		if op.ElementID == "" || op.TargetArtboardID == "" {
			return nil, false, fmt.Errorf("%w: element.duplicate needs elementId and targetArtboardId", ErrBadOp)
		}
		id, ok := store.DuplicateElementToArtboard(op.ElementID, op.TargetArtboardID)
		return idResult("elementId", id, ok), ok, nil

	case OpElementForward:
		if op.ElementID == "" {
			return nil, false, fmt.Errorf("%w: element.forward needs elementId", ErrBadOp)
		}
		return nil, store.BringElementForward(op.ElementID), nil

	case OpElementBackward:
		if op.ElementID == "" {
			return nil, false, fmt.Errorf("%w: element.backward needs elementId", ErrBadOp)
		}
		return nil, store.SendElementBackward(op.ElementID), nil

	case OpElementSelect:
		opts := canvas.SelectOptions{}
		if op.Options != nil {
			opts = *op.Options
		}
		return nil, store.SelectElement(op.ElementID, opts), nil

	case OpElementLock:
		if op.ElementID == "" {
			return nil, false, fmt.Errorf("%w: element.lock needs elementId", ErrBadOp)
		}
		return nil, store.ToggleElementLock(op.ElementID), nil

	case OpElementVisibility:
		if op.ElementID == "" {
			return nil, false, fmt.Errorf("%w: element.visibility needs elementId", ErrBadOp)
		}
		return nil, store.ToggleElementVisibility(op.ElementID), nil

	case OpElementNudge:
		return nil, store.NudgeSelected(op.Dx, op.Dy, op.Big), nil

	case OpFontAdd:
		if op.Font == nil {
			return nil, false, fmt.Errorf("%w: font.add needs font", ErrBadOp)
		}
		id := store.AddFont(*op.Font)
		return idResult("fontId", id, true), true, nil

	case OpFontRemove:
		if op.FontID == "" {
			return nil, false, fmt.Errorf("%w: font.remove needs fontId", ErrBadOp)
		}
		return nil, store.RemoveFont(op.FontID), nil

	case OpSettingsUpdate:
		if op.Settings == nil {
			return nil, false, fmt.Errorf("%w: settings.update needs settings", ErrBadOp)
		}
		store.UpdateSettings(*op.Settings)
		return nil, true, nil

	case OpCanvasUndo:
		return nil, store.Undo(), nil

	case OpCanvasRedo:
		return nil, store.Redo(), nil

	case OpCanvasSyncMode:
		if op.Enabled == nil {
			return nil, false, fmt.Errorf("%w: canvas.syncMode needs enabled", ErrBadOp)
		}
		store.SetSynchronizedEditing(*op.Enabled)
		return nil, true, nil

	case OpGestureBegin:
		store.BeginGesture()
		return nil, true, nil

	case OpGestureEnd:
		store.EndGesture()
		return nil, true, nil

	default:
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownOp, op.Type)
	}
}

func idResult(key, id string, ok bool) json.RawMessage {
	if !ok {
		return nil
	}
	out, err := json.Marshal(map[string]string{key: id})
	if err != nil {
		return nil
	}
	return out
}
