// Package canvas holds the multi-artboard document model and the state
// machine that mutates it: artboards, the element pool, fonts, selection,
// settings, snapshot history and cross-artboard synchronized editing.
package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

// ElementType discriminates the element union.
type ElementType string

const (
	TypeImage ElementType = "image"
	TypeText  ElementType = "text"
	TypeShape ElementType = "shape"
	TypeSlot  ElementType = "slot"
)

// Image fit modes.
const (
	FitContain = "contain"
	FitCover   = "cover"
)

// Text alignment values.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// Settings bounds. The store does not re-validate these; callers clamp
// before submitting an update.
const (
	GridSizeMin = 4
	GridSizeMax = 40
	ZoomMin     = 0.6
	ZoomMax     = 1.4
)

// Artboard is one independent drawing surface at a fixed pixel size.
// Width and height are immutable after creation; only name and background
// can change.
type Artboard struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background"`
}

// Bounds returns the artboard rect at origin.
func (a Artboard) Bounds() geometry.Rect {
	return geometry.Rect{Width: float64(a.Width), Height: float64(a.Height)}
}

// Font is an embedded font owned by the canvas.
type Font struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
	Format  string `json:"format"`
}

// Settings are the view/editing preferences of one canvas.
type Settings struct {
	SnapToGrid bool    `json:"snapToGrid"`
	GridSize   float64 `json:"gridSize"`
	ShowGuides bool    `json:"showGuides"`
	Zoom       float64 `json:"zoom"`
}

// DefaultSettings returns the settings a fresh canvas starts with.
func DefaultSettings() Settings {
	return Settings{SnapToGrid: true, GridSize: 8, ShowGuides: true, Zoom: 1}
}

// Props is the type-specific half of an element. It is a sealed union:
// exactly one of ImageProps, TextProps, ShapeProps or SlotProps.
type Props interface {
	Clone() Props
	isProps()
}

// ImageProps belongs to image elements.
type ImageProps struct {
	Src            string `json:"src"`
	Fit            string `json:"fit"`
	MaintainAspect bool   `json:"maintainAspect"`
}

func (p *ImageProps) Clone() Props { c := *p; return &c }
func (*ImageProps) isProps()       {}

// TextProps belongs to text elements.
type TextProps struct {
	Text          string  `json:"text"`
	FontID        string  `json:"fontId,omitempty"`
	FontSize      float64 `json:"fontSize"`
	FontWeight    int     `json:"fontWeight"`
	Color         string  `json:"color"`
	TextAlign     string  `json:"textAlign"`
	LineHeight    float64 `json:"lineHeight"`
	LetterSpacing float64 `json:"letterSpacing"`
	AutoWidth     bool    `json:"autoWidth"`
}

func (p *TextProps) Clone() Props { c := *p; return &c }
func (*TextProps) isProps()       {}

// ShapeProps belongs to shape elements.
type ShapeProps struct {
	Fill        string  `json:"fill"`
	BorderColor string  `json:"borderColor,omitempty"`
	BorderWidth float64 `json:"borderWidth"`
	Radius      float64 `json:"radius"`
}

func (p *ShapeProps) Clone() Props { c := *p; return &c }
func (*ShapeProps) isProps()       {}

// SlotProps belongs to slot elements: an opaque placeholder rectangle for
// the external gameplay renderer, with no fields of its own.
type SlotProps struct{}

func (p *SlotProps) Clone() Props { return &SlotProps{} }
func (*SlotProps) isProps()       {}

// Element is a positioned, layered object on exactly one artboard.
// Position and size are in the owning artboard's pixel space and stay within
// its bounds after any mutation. Layer is the per-artboard z-order: within
// one artboard, layers always form a dense 0..N-1 permutation.
type Element struct {
	ID           string
	Name         string
	ArtboardID   string
	Type         ElementType
	Position     geometry.Point
	Size         geometry.Size
	Rotation     float64
	Opacity      float64
	Layer        int
	Locked       bool
	Visible      *bool // nil means visible
	TemplateRole string
	SyncGroup    string
	Props        Props
}

// IsVisible reports the effective visibility: an unset flag counts as true.
func (e *Element) IsVisible() bool {
	return e.Visible == nil || *e.Visible
}

// Bounds returns the element rect in artboard space.
func (e *Element) Bounds() geometry.Rect {
	return geometry.RectFrom(e.Position, e.Size)
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	c := *e
	if e.Visible != nil {
		v := *e.Visible
		c.Visible = &v
	}
	if e.Props != nil {
		c.Props = e.Props.Clone()
	}
	return &c
}

// Image returns the image props, or nil for other element types.
func (e *Element) Image() *ImageProps {
	p, _ := e.Props.(*ImageProps)
	return p
}

// Text returns the text props, or nil for other element types.
func (e *Element) Text() *TextProps {
	p, _ := e.Props.(*TextProps)
	return p
}

// Shape returns the shape props, or nil for other element types.
func (e *Element) Shape() *ShapeProps {
	p, _ := e.Props.(*ShapeProps)
	return p
}

// elementCommon carries the variant-independent fields for JSON round
// trips. Type-specific fields are flattened into the same object by
// embedding the props struct next to it.
type elementCommon struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ArtboardID   string         `json:"artboardId"`
	Type         ElementType    `json:"type"`
	Position     geometry.Point `json:"position"`
	Size         geometry.Size  `json:"size"`
	Rotation     float64        `json:"rotation"`
	Opacity      float64        `json:"opacity"`
	Layer        int            `json:"layer"`
	Locked       bool           `json:"locked"`
	Visible      *bool          `json:"visible,omitempty"`
	TemplateRole string         `json:"templateRole,omitempty"`
	SyncGroup    string         `json:"syncGroup,omitempty"`
}

func (e *Element) common() elementCommon {
	return elementCommon{
		ID:           e.ID,
		Name:         e.Name,
		ArtboardID:   e.ArtboardID,
		Type:         e.Type,
		Position:     e.Position,
		Size:         e.Size,
		Rotation:     e.Rotation,
		Opacity:      e.Opacity,
		Layer:        e.Layer,
		Locked:       e.Locked,
		Visible:      e.Visible,
		TemplateRole: e.TemplateRole,
		SyncGroup:    e.SyncGroup,
	}
}

func (e *Element) setCommon(c elementCommon) {
	e.ID = c.ID
	e.Name = c.Name
	e.ArtboardID = c.ArtboardID
	e.Type = c.Type
	e.Position = c.Position
	e.Size = c.Size
	e.Rotation = c.Rotation
	e.Opacity = c.Opacity
	e.Layer = c.Layer
	e.Locked = c.Locked
	e.Visible = c.Visible
	e.TemplateRole = c.TemplateRole
	e.SyncGroup = c.SyncGroup
}

// MarshalJSON flattens the element into a single object with the
// type-specific fields alongside the common ones.
func (e *Element) MarshalJSON() ([]byte, error) {
	c := e.common()
	switch p := e.Props.(type) {
	case *ImageProps:
		return json.Marshal(struct {
			elementCommon
			ImageProps
		}{c, *p})
	case *TextProps:
		return json.Marshal(struct {
			elementCommon
			TextProps
		}{c, *p})
	case *ShapeProps:
		return json.Marshal(struct {
			elementCommon
			ShapeProps
		}{c, *p})
	case *SlotProps, nil:
		return json.Marshal(c)
	default:
		return nil, fmt.Errorf("unknown element props %T", e.Props)
	}
}

// UnmarshalJSON rebuilds the union from a flat object, picking the props
// variant from the type discriminator.
func (e *Element) UnmarshalJSON(data []byte) error {
	var c elementCommon
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	e.setCommon(c)

	switch c.Type {
	case TypeImage:
		var p ImageProps
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		e.Props = &p
	case TypeText:
		var p TextProps
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		e.Props = &p
	case TypeShape:
		var p ShapeProps
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		e.Props = &p
	case TypeSlot:
		e.Props = &SlotProps{}
	default:
		return fmt.Errorf("unknown element type %q", c.Type)
	}
	return nil
}

// defaultProps returns the zero props variant for a type, or nil for an
// unknown type.
func defaultProps(t ElementType) Props {
	switch t {
	case TypeImage:
		return &ImageProps{Fit: FitContain, MaintainAspect: true}
	case TypeText:
		return &TextProps{FontSize: 24, FontWeight: 400, Color: "#1f2430", TextAlign: AlignCenter, LineHeight: 1.2}
	case TypeShape:
		return &ShapeProps{Fill: "#4263eb"}
	case TypeSlot:
		return &SlotProps{}
	default:
		return nil
	}
}

// ArtboardSpec describes a new artboard. ID is optional; width and height
// are required and must be positive.
type ArtboardSpec struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background,omitempty"`
}

// ArtboardUpdate is a partial artboard change. Width/height are absent on
// purpose: dimensions are immutable after creation.
type ArtboardUpdate struct {
	Name       *string `json:"name,omitempty"`
	Background *string `json:"background,omitempty"`
}

// ElementUpdate is a partial element change: nil fields are left alone.
// There is no type field, so an update can never switch the union variant,
// and variant fields that don't match the element's type are ignored.
type ElementUpdate struct {
	Name         *string         `json:"name,omitempty"`
	Position     *geometry.Point `json:"position,omitempty"`
	Size         *geometry.Size  `json:"size,omitempty"`
	Rotation     *float64        `json:"rotation,omitempty"`
	Opacity      *float64        `json:"opacity,omitempty"`
	Locked       *bool           `json:"locked,omitempty"`
	Visible      *bool           `json:"visible,omitempty"`
	TemplateRole *string         `json:"templateRole,omitempty"`
	SyncGroup    *string         `json:"syncGroup,omitempty"`

	// image
	Src            *string `json:"src,omitempty"`
	Fit            *string `json:"fit,omitempty"`
	MaintainAspect *bool   `json:"maintainAspect,omitempty"`

	// text
	Text          *string  `json:"text,omitempty"`
	FontID        *string  `json:"fontId,omitempty"`
	FontSize      *float64 `json:"fontSize,omitempty"`
	FontWeight    *int     `json:"fontWeight,omitempty"`
	Color         *string  `json:"color,omitempty"`
	TextAlign     *string  `json:"textAlign,omitempty"`
	LineHeight    *float64 `json:"lineHeight,omitempty"`
	LetterSpacing *float64 `json:"letterSpacing,omitempty"`
	AutoWidth     *bool    `json:"autoWidth,omitempty"`

	// shape
	Fill        *string  `json:"fill,omitempty"`
	BorderColor *string  `json:"borderColor,omitempty"`
	BorderWidth *float64 `json:"borderWidth,omitempty"`
	Radius      *float64 `json:"radius,omitempty"`
}

// SettingsUpdate is a partial settings change. The store applies it as-is;
// zoom and grid bounds are the caller's responsibility.
type SettingsUpdate struct {
	SnapToGrid *bool    `json:"snapToGrid,omitempty"`
	GridSize   *float64 `json:"gridSize,omitempty"`
	ShowGuides *bool    `json:"showGuides,omitempty"`
	Zoom       *float64 `json:"zoom,omitempty"`
}

// SelectOptions modify element selection. Append adds to the selection
// instead of replacing it; append+toggle removes an already-selected id
// (meta/ctrl-click semantics).
type SelectOptions struct {
	Append bool `json:"append,omitempty"`
	Toggle bool `json:"toggle,omitempty"`
}

// State is the aggregate document of one project: every artboard, the flat
// element pool (ownership by artboardId reference), embedded fonts, the
// selection and settings. Undo history lives on the Store, not here, so a
// persisted document stays compact.
type State struct {
	Artboards           []Artboard `json:"artboards"`
	Fonts               []Font     `json:"fonts"`
	Elements            []*Element `json:"elements"`
	SelectedArtboardID  string     `json:"selectedArtboardId"`
	SelectedElementIDs  []string   `json:"selectedElementIds"`
	Settings            Settings   `json:"settings"`
	SynchronizedEditing bool       `json:"synchronizedEditing,omitempty"`
}
