// Package surface adapts pointer gestures to canvas mutations: dragging,
// corner resizing, drop ingestion from the element library and hit
// testing. It holds only transient gesture state; every actual mutation
// goes through the store.
package surface

import (
	"github.com/spinstudio/spinstudio/backend-go/internal/blob"
	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

// MinElementSize is the smallest width/height a resize handle can reach.
const MinElementSize = 32

// Handle names one of the four corner resize grips.
type Handle string

const (
	HandleNW Handle = "nw"
	HandleNE Handle = "ne"
	HandleSW Handle = "sw"
	HandleSE Handle = "se"
)

// Controller drives one editing surface over one store. It is not safe
// for concurrent use; the surface owner serializes pointer events.
type Controller struct {
	store *canvas.Store

	drag   *dragState
	resize *resizeState
}

type dragState struct {
	elementID string
	origin    geometry.Point
	startX    float64
	startY    float64
}

type resizeState struct {
	elementID  string
	handle     Handle
	originPos  geometry.Point
	originSize geometry.Size
	startX     float64
	startY     float64
}

func NewController(store *canvas.Store) *Controller {
	return &Controller{store: store}
}

// BeginDrag starts a move gesture at a screen-space pointer position.
// Locked and unknown elements refuse the gesture. The whole drag
// coalesces into a single history entry.
func (c *Controller) BeginDrag(elementID string, pointerX, pointerY float64) bool {
	el, ok := c.store.Element(elementID)
	if !ok || el.Locked {
		return false
	}
	c.store.BeginGesture()
	c.drag = &dragState{
		elementID: elementID,
		origin:    el.Position,
		startX:    pointerX,
		startY:    pointerY,
	}
	return true
}

// DragTo moves the dragged element under the pointer: the screen delta
// is divided by the current zoom, snapped to the grid when enabled and
// clamped into the artboard by the store.
func (c *Controller) DragTo(pointerX, pointerY float64) bool {
	if c.drag == nil {
		return false
	}
	zoom := c.store.State().Settings.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	pos := geometry.Point{
		X: c.drag.origin.X + (pointerX-c.drag.startX)/zoom,
		Y: c.drag.origin.Y + (pointerY-c.drag.startY)/zoom,
	}
	if s := c.store.State().Settings; s.SnapToGrid {
		pos.X = geometry.Snap(pos.X, s.GridSize)
		pos.Y = geometry.Snap(pos.Y, s.GridSize)
	}
	return c.store.UpdateElement(c.drag.elementID, canvas.ElementUpdate{Position: &pos})
}

// EndDrag releases the gesture.
func (c *Controller) EndDrag() {
	if c.drag == nil {
		return
	}
	c.drag = nil
	c.store.EndGesture()
}

// BeginResize starts a corner resize gesture.
func (c *Controller) BeginResize(elementID string, handle Handle, pointerX, pointerY float64) bool {
	el, ok := c.store.Element(elementID)
	if !ok || el.Locked {
		return false
	}
	switch handle {
	case HandleNW, HandleNE, HandleSW, HandleSE:
	default:
		return false
	}
	c.store.BeginGesture()
	c.resize = &resizeState{
		elementID:  elementID,
		handle:     handle,
		originPos:  el.Position,
		originSize: el.Size,
		startX:     pointerX,
		startY:     pointerY,
	}
	return true
}

// ResizeTo resizes toward the pointer. Only the grabbed corner's axes
// move; the opposite edges stay fixed. Width and height are bounded
// below by MinElementSize and above by the remaining artboard space from
// the fixed edge.
func (c *Controller) ResizeTo(pointerX, pointerY float64) bool {
	if c.resize == nil {
		return false
	}
	el, ok := c.store.Element(c.resize.elementID)
	if !ok {
		return false
	}
	board, ok := c.store.ArtboardByID(el.ArtboardID)
	if !ok {
		return false
	}
	zoom := c.store.State().Settings.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	dx := (pointerX - c.resize.startX) / zoom
	dy := (pointerY - c.resize.startY) / zoom

	x0, y0 := c.resize.originPos.X, c.resize.originPos.Y
	w0, h0 := c.resize.originSize.Width, c.resize.originSize.Height
	bw, bh := float64(board.Width), float64(board.Height)

	pos, size := c.resize.originPos, c.resize.originSize
	switch c.resize.handle {
	case HandleSE:
		size.Width = geometry.Clamp(w0+dx, MinElementSize, bw-x0)
		size.Height = geometry.Clamp(h0+dy, MinElementSize, bh-y0)
	case HandleNE:
		size.Width = geometry.Clamp(w0+dx, MinElementSize, bw-x0)
		size.Height = geometry.Clamp(h0-dy, MinElementSize, y0+h0)
		pos.Y = y0 + h0 - size.Height
	case HandleSW:
		size.Width = geometry.Clamp(w0-dx, MinElementSize, x0+w0)
		pos.X = x0 + w0 - size.Width
		size.Height = geometry.Clamp(h0+dy, MinElementSize, bh-y0)
	case HandleNW:
		size.Width = geometry.Clamp(w0-dx, MinElementSize, x0+w0)
		pos.X = x0 + w0 - size.Width
		size.Height = geometry.Clamp(h0-dy, MinElementSize, y0+h0)
		pos.Y = y0 + h0 - size.Height
	}
	return c.store.UpdateElement(c.resize.elementID, canvas.ElementUpdate{Position: &pos, Size: &size})
}

// EndResize releases the gesture.
func (c *Controller) EndResize() {
	if c.resize == nil {
		return
	}
	c.resize = nil
	c.store.EndGesture()
}

// DropPayload is the element-library package dropped onto the surface.
type DropPayload struct {
	Type    canvas.ElementType `json:"type"`
	Name    string             `json:"name"`
	Src     string             `json:"src,omitempty"`
	AssetID string             `json:"assetId,omitempty"`
	Color   string             `json:"color,omitempty"`
}

// Drop ingests a library payload at an artboard point, creating a new
// element of the payload's type centered on the drop position with a
// type-appropriate default size.
func (c *Controller) Drop(artboardID string, payload DropPayload, x, y float64) (string, bool) {
	size := defaultDropSize(payload.Type)
	el := canvas.Element{
		Type:     payload.Type,
		Name:     payload.Name,
		Position: geometry.Point{X: x - size.Width/2, Y: y - size.Height/2},
		Size:     size,
	}
	switch payload.Type {
	case canvas.TypeImage:
		src := payload.Src
		if src == "" && payload.AssetID != "" {
			src = blob.Locator(payload.AssetID)
		}
		el.Props = &canvas.ImageProps{Src: src, Fit: canvas.FitContain, MaintainAspect: true}
	case canvas.TypeText:
		props := &canvas.TextProps{Text: "New text", FontSize: 24, FontWeight: 400, Color: "#1f2430", TextAlign: canvas.AlignCenter, LineHeight: 1.2}
		if payload.Color != "" {
			props.Color = payload.Color
		}
		el.Props = props
	case canvas.TypeShape:
		fill := payload.Color
		if fill == "" {
			fill = "#4263eb"
		}
		el.Props = &canvas.ShapeProps{Fill: fill}
	case canvas.TypeSlot:
		el.Props = &canvas.SlotProps{}
	default:
		return "", false
	}
	return c.store.AddElement(artboardID, el)
}

func defaultDropSize(t canvas.ElementType) geometry.Size {
	switch t {
	case canvas.TypeImage:
		return geometry.Size{Width: 240, Height: 180}
	case canvas.TypeText:
		return geometry.Size{Width: 240, Height: 60}
	case canvas.TypeShape:
		return geometry.Size{Width: 160, Height: 120}
	case canvas.TypeSlot:
		return geometry.Size{Width: 280, Height: 200}
	default:
		return geometry.Size{Width: 160, Height: 120}
	}
}

// HitTest returns the topmost visible element under an artboard point,
// or empty when the point hits bare canvas. Rotated elements test
// against their rotated bounds.
func (c *Controller) HitTest(artboardID string, x, y float64) (string, bool) {
	els := c.store.ElementsOn(artboardID)
	p := geometry.Point{X: x, Y: y}
	for i := len(els) - 1; i >= 0; i-- {
		el := els[i]
		if !el.IsVisible() {
			continue
		}
		if hitElement(el, p) {
			return el.ID, true
		}
	}
	return "", false
}

func hitElement(el *canvas.Element, p geometry.Point) bool {
	if el.Rotation != 0 {
		cx := el.Position.X + el.Size.Width/2
		cy := el.Position.Y + el.Size.Height/2
		p = geometry.RotateAbout(-el.Rotation, cx, cy).TransformPoint(p)
	}
	return el.Bounds().Contains(p.X, p.Y)
}

// Marquee selects every visible element whose bounds intersect the given
// artboard rect, replacing the current selection. An empty hit set
// clears it.
func (c *Controller) Marquee(artboardID string, r geometry.Rect) int {
	count := 0
	first := true
	for _, el := range c.store.ElementsOn(artboardID) {
		if !el.IsVisible() || !r.Intersects(el.Bounds()) {
			continue
		}
		c.store.SelectElement(el.ID, canvas.SelectOptions{Append: !first})
		first = false
		count++
	}
	if count == 0 {
		c.store.SelectElement("", canvas.SelectOptions{})
	}
	return count
}
