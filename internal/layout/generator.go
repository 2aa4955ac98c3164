// Package layout turns a summarized marketing kit into a multi-size
// starter canvas: one artboard per (target size, layout variation) pair,
// populated from a set of master element templates that share sync groups
// across every instantiation.
package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/spinstudio/spinstudio/backend-go/internal/canvas"
	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
	"github.com/spinstudio/spinstudio/backend-go/internal/typeid"
)

var (
	ErrNoTargetSizes = errors.New("layout: at least one target size is required")
	ErrInvalidSize   = errors.New("layout: target size must have positive dimensions")
)

// KitSummary is the distilled marketing kit the generator consumes: at
// most one image locator per visual role and the three copy strings.
// Empty fields mean the asset is absent.
type KitSummary struct {
	Background string `json:"background,omitempty"`
	Hero       string `json:"hero,omitempty"`
	Logo       string `json:"logo,omitempty"`
	Headline   string `json:"headline,omitempty"`
	Body       string `json:"body,omitempty"`
	CTA        string `json:"cta,omitempty"`
}

// TargetSize is one requested creative size. ID is the caller's catalog
// key and is carried through for diagnostics only.
type TargetSize struct {
	ID     string `json:"id,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ProgressFunc is called after each artboard completes, with a 0-100
// percentage and a readable phase label. Generation runs the same with a
// nil callback.
type ProgressFunc func(percent int, phase string)

// Result is a complete artboard+element set ready to attach to a canvas.
type Result struct {
	Artboards []canvas.Artboard `json:"artboards"`
	Elements  []*canvas.Element `json:"elements"`
}

// Template roles. Each one doubles as the sync group shared by every
// instance of that master, so synchronized editing binds siblings across
// all generated artboards.
const (
	RoleBackground = "background"
	RoleHero       = "hero"
	RoleLogo       = "logo"
	RoleHeadline   = "headline"
	RoleBody       = "body"
	RoleCTA        = "cta"
	RoleCTALabel   = "ctaLabel"
)

// master is one element template, instantiated once per generated
// artboard.
type master struct {
	role string
	kind canvas.ElementType
	name string
	src  string
	text string
}

// buildMasters derives the template list from the kit. Image masters
// exist only for supplied assets; headline and body only for supplied
// copy. The CTA button and its label are always created, falling back to
// a generic caption, because a playable ad without a tappable CTA is not
// shippable.
func buildMasters(kit KitSummary) []master {
	var ms []master
	if kit.Background != "" {
		ms = append(ms, master{role: RoleBackground, kind: canvas.TypeImage, name: "Background", src: kit.Background})
	}
	if kit.Hero != "" {
		ms = append(ms, master{role: RoleHero, kind: canvas.TypeImage, name: "Hero", src: kit.Hero})
	}
	if kit.Logo != "" {
		ms = append(ms, master{role: RoleLogo, kind: canvas.TypeImage, name: "Logo", src: kit.Logo})
	}
	if kit.Headline != "" {
		ms = append(ms, master{role: RoleHeadline, kind: canvas.TypeText, name: "Headline", text: kit.Headline})
	}
	if kit.Body != "" {
		ms = append(ms, master{role: RoleBody, kind: canvas.TypeText, name: "Body", text: kit.Body})
	}
	label := kit.CTA
	if label == "" {
		label = "Play Now"
	}
	ms = append(ms,
		master{role: RoleCTA, kind: canvas.TypeShape, name: "CTA Button"},
		master{role: RoleCTALabel, kind: canvas.TypeText, name: "CTA Label", text: label},
	)
	return ms
}

// Generate expands the kit into artboards and elements for every target
// size. The whole input is validated up front: on error, nothing is
// produced (no partial result to attach). Artboards are named
// "{width}×{height} - {variationName}".
func Generate(kit KitSummary, sizes []TargetSize, progress ProgressFunc) (*Result, error) {
	if len(sizes) == 0 {
		return nil, ErrNoTargetSizes
	}
	for _, s := range sizes {
		if s.Width <= 0 || s.Height <= 0 {
			return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
		}
	}

	masters := buildMasters(kit)
	heroPresent := kit.Hero != ""

	total := 0
	for _, s := range sizes {
		total += len(variationsFor(classify(s.Width, s.Height)))
	}

	res := &Result{}
	done := 0
	for _, s := range sizes {
		for _, v := range variationsFor(classify(s.Width, s.Height)) {
			board := canvas.Artboard{
				ID:         typeid.NewArtboardID(),
				Name:       fmt.Sprintf("%d×%d - %s", s.Width, s.Height, v.Name),
				Width:      s.Width,
				Height:     s.Height,
				Background: "#ffffff",
			}
			res.Artboards = append(res.Artboards, board)

			var ctaRect geometry.Rect
			for layer, m := range masters {
				rect := placeRole(m.role, float64(s.Width), float64(s.Height), v, heroPresent)
				switch m.role {
				case RoleCTA:
					ctaRect = rect
				case RoleCTALabel:
					// The label overlays the button exactly, so it must be
					// instantiated after the button's geometry is known.
					rect = ctaRect
				}
				res.Elements = append(res.Elements, buildElement(m, board.ID, rect, layer))
			}

			done++
			if progress != nil {
				progress(done*100/total, fmt.Sprintf("Generated %s", board.Name))
			}
		}
	}
	return res, nil
}

// placeRole computes one role's rect inside a W×H artboard using the
// variation's fractional anchors. Text bands fall back to the hero anchor
// when no hero image exists, so variations stay visually distinct for
// text-only kits.
func placeRole(role string, w, h float64, v Variation, heroPresent bool) geometry.Rect {
	switch role {
	case RoleBackground:
		return geometry.Rect{Width: w, Height: h}
	case RoleHero:
		hw, hh := 0.8*w, 0.3*h
		return geometry.Rect{X: (w - hw) / 2, Y: v.HeroTop * h, Width: hw, Height: hh}
	case RoleLogo:
		lw, lh := 0.3*w, 0.1*h
		return geometry.Rect{X: (w - lw) / 2, Y: v.LogoBottom*h - lh, Width: lw, Height: lh}
	case RoleHeadline:
		y := v.HeroTop * h
		if heroPresent {
			y += 0.32 * h
		}
		return geometry.Rect{X: 0.05 * w, Y: y, Width: 0.9 * w, Height: 0.1 * h}
	case RoleBody:
		y := v.HeroTop*h + 0.115*h
		if heroPresent {
			y += 0.32 * h
		}
		return geometry.Rect{X: 0.1 * w, Y: y, Width: 0.8 * w, Height: 0.08 * h}
	case RoleCTA, RoleCTALabel:
		bw, bh := 0.4*w, 0.08*h
		return geometry.Rect{X: (w - bw) / 2, Y: v.CTABottom*h - bh, Width: bw, Height: bh}
	default:
		return geometry.Rect{Width: w, Height: h}
	}
}

// buildElement instantiates a master at a concrete rect. All instances of
// one master share its role as both templateRole and syncGroup.
func buildElement(m master, artboardID string, rect geometry.Rect, layer int) *canvas.Element {
	el := &canvas.Element{
		ID:           typeid.NewElementID(),
		Name:         m.name,
		ArtboardID:   artboardID,
		Type:         m.kind,
		Position:     geometry.Point{X: rect.X, Y: rect.Y},
		Size:         geometry.Size{Width: rect.Width, Height: rect.Height},
		Opacity:      1,
		Layer:        layer,
		TemplateRole: m.role,
		SyncGroup:    m.role,
	}
	switch m.kind {
	case canvas.TypeImage:
		fit := canvas.FitContain
		if m.role == RoleBackground {
			fit = canvas.FitCover
		}
		el.Props = &canvas.ImageProps{Src: m.src, Fit: fit, MaintainAspect: true}
	case canvas.TypeText:
		el.Props = textPropsFor(m.role, m.text, rect.Height)
	case canvas.TypeShape:
		el.Props = &canvas.ShapeProps{Fill: "#ff4757", Radius: rect.Height / 2}
	default:
		el.Props = &canvas.SlotProps{}
	}
	return el
}

// textPropsFor styles a text band by role, sizing type off the band
// height so the same variation reads consistently at every artboard size.
func textPropsFor(role, text string, bandHeight float64) *canvas.TextProps {
	switch role {
	case RoleHeadline:
		return &canvas.TextProps{
			Text:       text,
			FontSize:   math.Round(bandHeight * 0.6),
			FontWeight: 800,
			Color:      "#1f2430",
			TextAlign:  canvas.AlignCenter,
			LineHeight: 1.15,
		}
	case RoleBody:
		return &canvas.TextProps{
			Text:       text,
			FontSize:   math.Round(bandHeight * 0.38),
			FontWeight: 400,
			Color:      "#495057",
			TextAlign:  canvas.AlignCenter,
			LineHeight: 1.4,
		}
	default: // CTA label
		return &canvas.TextProps{
			Text:       text,
			FontSize:   math.Round(bandHeight * 0.45),
			FontWeight: 700,
			Color:      "#ffffff",
			TextAlign:  canvas.AlignCenter,
			LineHeight: 1,
		}
	}
}
