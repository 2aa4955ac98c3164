package kit

import (
	"path"
	"strings"

	"github.com/spinstudio/spinstudio/backend-go/internal/layout"
)

// LocatorFunc maps an image asset to the reference string embedded in
// generated elements, typically "file://{id}" once the blob is stored.
type LocatorFunc func(Asset) string

// Summarize distills a parsed asset list into the generator's input:
// at most one image per visual role and the three copy strings. Roles
// are picked by filename keywords first; leftovers fill the empty image
// slots in hero, background, logo order. Text files without a telling
// name contribute their first line as the headline and the rest as body.
func Summarize(assets []Asset, locate LocatorFunc) layout.KitSummary {
	if locate == nil {
		locate = func(a Asset) string { return a.DataURL() }
	}
	var sum layout.KitSummary
	var spareImages []Asset

	for _, a := range assets {
		switch a.Kind {
		case KindImage:
			switch imageRole(a.Name) {
			case layout.RoleBackground:
				if sum.Background == "" {
					sum.Background = locate(a)
					continue
				}
			case layout.RoleLogo:
				if sum.Logo == "" {
					sum.Logo = locate(a)
					continue
				}
			case layout.RoleHero:
				if sum.Hero == "" {
					sum.Hero = locate(a)
					continue
				}
			}
			spareImages = append(spareImages, a)
		case KindText:
			applyText(&sum, a)
		}
	}

	for _, a := range spareImages {
		switch {
		case sum.Hero == "":
			sum.Hero = locate(a)
		case sum.Background == "":
			sum.Background = locate(a)
		case sum.Logo == "":
			sum.Logo = locate(a)
		}
	}
	return sum
}

// imageRole guesses a visual role from the filename. Empty means no
// keyword matched.
func imageRole(name string) string {
	stem := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	for _, kw := range []string{"background", "backdrop", "bg"} {
		if strings.Contains(stem, kw) {
			return layout.RoleBackground
		}
	}
	for _, kw := range []string{"logo", "icon", "brand"} {
		if strings.Contains(stem, kw) {
			return layout.RoleLogo
		}
	}
	for _, kw := range []string{"hero", "banner", "main", "product"} {
		if strings.Contains(stem, kw) {
			return layout.RoleHero
		}
	}
	return ""
}

// applyText routes a text asset into the summary. A keyword filename
// claims its slot outright; an anonymous file fills headline then body
// from its lines.
func applyText(sum *layout.KitSummary, a Asset) {
	stem := strings.ToLower(strings.TrimSuffix(a.Name, path.Ext(a.Name)))
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return
	}
	switch {
	case containsAny(stem, "headline", "title", "heading"):
		if sum.Headline == "" {
			sum.Headline = firstLine(content)
		}
	case containsAny(stem, "body", "description", "subtitle", "copy"):
		if sum.Body == "" {
			sum.Body = content
		}
	case containsAny(stem, "cta", "button", "action"):
		if sum.CTA == "" {
			sum.CTA = firstLine(content)
		}
	default:
		lines := nonEmptyLines(content)
		if len(lines) > 0 && sum.Headline == "" {
			sum.Headline = lines[0]
			lines = lines[1:]
		}
		if len(lines) > 0 && sum.Body == "" {
			sum.Body = strings.Join(lines, " ")
		}
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	lines := nonEmptyLines(s)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
