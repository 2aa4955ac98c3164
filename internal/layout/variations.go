package layout

// aspectClass buckets a target size by its width/height ratio. Each class
// carries its own ordered list of layout variations.
type aspectClass string

const (
	classPortrait  aspectClass = "portrait"
	classLandscape aspectClass = "landscape"
	classSquare    aspectClass = "square"
)

// classify picks the aspect class: narrower than 0.8 is portrait, wider
// than 1.2 is landscape, anything in between counts as square.
func classify(width, height int) aspectClass {
	ratio := float64(width) / float64(height)
	switch {
	case ratio < 0.8:
		return classPortrait
	case ratio > 1.2:
		return classLandscape
	default:
		return classSquare
	}
}

// Variation is one named layout heuristic: fractional vertical anchors
// that place the hero block, pin the logo's bottom edge and pin the CTA
// button's bottom edge within an artboard of any size in the class.
type Variation struct {
	Name       string
	HeroTop    float64
	LogoBottom float64
	CTABottom  float64
}

// maxVariationsPerSize caps how many artboards one target size expands
// into. Classes defining fewer variations produce fewer.
const maxVariationsPerSize = 3

var variationsByClass = map[aspectClass][]Variation{
	classPortrait: {
		{Name: "Hero Top", HeroTop: 0.08, LogoBottom: 0.92, CTABottom: 0.78},
		{Name: "Centered", HeroTop: 0.22, LogoBottom: 0.94, CTABottom: 0.82},
		{Name: "Stacked", HeroTop: 0.05, LogoBottom: 0.90, CTABottom: 0.70},
	},
	classLandscape: {
		{Name: "Split", HeroTop: 0.10, LogoBottom: 0.90, CTABottom: 0.80},
		{Name: "Banner", HeroTop: 0.15, LogoBottom: 0.92, CTABottom: 0.75},
	},
	classSquare: {
		{Name: "Classic", HeroTop: 0.10, LogoBottom: 0.92, CTABottom: 0.80},
		{Name: "Compact", HeroTop: 0.18, LogoBottom: 0.90, CTABottom: 0.72},
		{Name: "Poster", HeroTop: 0.06, LogoBottom: 0.94, CTABottom: 0.78},
	},
}

// variationsFor returns the class's variations, capped.
func variationsFor(class aspectClass) []Variation {
	vs := variationsByClass[class]
	if len(vs) > maxVariationsPerSize {
		vs = vs[:maxVariationsPerSize]
	}
	return vs
}
