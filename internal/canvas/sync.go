package canvas

import (
	"github.com/spinstudio/spinstudio/backend-go/internal/geometry"
)

// Synchronized editing: elements sharing a non-empty syncGroup represent
// the same content at different canvas sizes. When the mode is on, an
// update to one of them is mirrored to every peer on a *different*
// artboard. Geometry adapts: a position delta is scaled by the peer
// artboard's dimensions over the source artboard's, and a resize is
// applied as the same proportional ratio against the peer's own size.
// Everything else on a fixed allow-list copies verbatim, because the
// message should read identically at every size while the layout flexes.
//
// The delta is taken from the requested update, not the post-clamp
// result, and each peer clamps independently into its own artboard.

// reindex rebuilds the id and sync-group indexes from the element pool.
func (s *Store) reindex() {
	s.byID = make(map[string]*Element, len(s.state.Elements))
	s.groups = make(map[string]map[string]bool)
	for _, el := range s.state.Elements {
		s.byID[el.ID] = el
		s.addToGroup(el.SyncGroup, el.ID)
	}
}

func (s *Store) addToGroup(group, id string) {
	if group == "" {
		return
	}
	set := s.groups[group]
	if set == nil {
		set = make(map[string]bool)
		s.groups[group] = set
	}
	set[id] = true
}

func (s *Store) removeFromGroup(group, id string) {
	if group == "" {
		return
	}
	set := s.groups[group]
	delete(set, id)
	if len(set) == 0 {
		delete(s.groups, group)
	}
}

// GroupMembers returns the element ids sharing a sync group.
func (s *Store) GroupMembers(group string) []string {
	set := s.groups[group]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// propagate mirrors an already-applied source update onto the source's
// sync-group peers on other artboards. Peers on the source's own
// artboard are left alone. Peer merges never re-propagate.
func (s *Store) propagate(src *Element, beforePos geometry.Point, beforeSize geometry.Size, upd ElementUpdate) {
	group := s.groups[src.SyncGroup]
	if len(group) < 2 {
		return
	}
	srcBoard, ok := s.artboard(src.ArtboardID)
	if !ok {
		return
	}

	base, hasVerbatim := verbatimFields(upd)
	var ratioW, ratioH float64
	hasSize := upd.Size != nil && beforeSize.Width > 0 && beforeSize.Height > 0
	if hasSize {
		ratioW = upd.Size.Width / beforeSize.Width
		ratioH = upd.Size.Height / beforeSize.Height
	}
	if !hasVerbatim && upd.Position == nil && !hasSize {
		return
	}

	srcW, srcH := float64(srcBoard.Width), float64(srcBoard.Height)
	for id := range group {
		peer, ok := s.byID[id]
		if !ok || peer == src || peer.ArtboardID == src.ArtboardID {
			continue
		}
		peerBoard, ok := s.artboard(peer.ArtboardID)
		if !ok {
			continue
		}
		u := base
		if upd.Position != nil {
			sx, sy := geometry.ScaleRatio(srcW, srcH, float64(peerBoard.Width), float64(peerBoard.Height))
			delta := upd.Position.Sub(beforePos)
			p := geometry.Point{X: peer.Position.X + delta.X*sx, Y: peer.Position.Y + delta.Y*sy}
			u.Position = &p
		}
		if hasSize {
			sz := geometry.Size{Width: peer.Size.Width * ratioW, Height: peer.Size.Height * ratioH}
			u.Size = &sz
		}
		s.mergeElement(peer, u)
	}
}

// verbatimFields extracts the update fields that copy to peers unscaled.
// The allow-list is fixed: semantic properties travel as-is, layout
// properties (position, size) are handled by the scaling path, and
// everything else (name, sync tags, text metrics like letterSpacing)
// stays per-element.
func verbatimFields(upd ElementUpdate) (ElementUpdate, bool) {
	var out ElementUpdate
	any := false
	if upd.Text != nil {
		out.Text, any = upd.Text, true
	}
	if upd.Color != nil {
		out.Color, any = upd.Color, true
	}
	if upd.FontSize != nil {
		out.FontSize, any = upd.FontSize, true
	}
	if upd.FontWeight != nil {
		out.FontWeight, any = upd.FontWeight, true
	}
	if upd.TextAlign != nil {
		out.TextAlign, any = upd.TextAlign, true
	}
	if upd.Fill != nil {
		out.Fill, any = upd.Fill, true
	}
	if upd.BorderColor != nil {
		out.BorderColor, any = upd.BorderColor, true
	}
	if upd.BorderWidth != nil {
		out.BorderWidth, any = upd.BorderWidth, true
	}
	if upd.Radius != nil {
		out.Radius, any = upd.Radius, true
	}
	if upd.Opacity != nil {
		out.Opacity, any = upd.Opacity, true
	}
	if upd.Rotation != nil {
		out.Rotation, any = upd.Rotation, true
	}
	if upd.Src != nil {
		out.Src, any = upd.Src, true
	}
	if upd.Visible != nil {
		out.Visible, any = upd.Visible, true
	}
	if upd.Locked != nil {
		out.Locked, any = upd.Locked, true
	}
	return out, any
}
