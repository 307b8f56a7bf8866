package runtimehtml

import "github.com/km-arc/go-binding/framework/dom"

// SVGAnalyzer tells standard SVG attributes, which must be written as
// attributes, from element properties.
type SVGAnalyzer interface {
	IsStandardSVGAttribute(node any, attributeName string) bool
}

// NoSVGAnalyzer treats nothing as a standard SVG attribute. It is the
// default when no analyzer is registered.
type NoSVGAnalyzer struct{}

func (*NoSVGAnalyzer) IsStandardSVGAttribute(any, string) bool { return false }

// StandardSVGAnalyzer recognizes the common geometry and presentation
// attributes on elements in the SVG namespace.
type StandardSVGAnalyzer struct{}

func NewStandardSVGAnalyzer() *StandardSVGAnalyzer { return &StandardSVGAnalyzer{} }

func (*StandardSVGAnalyzer) IsStandardSVGAttribute(node any, attributeName string) bool {
	el, ok := node.(dom.Element)
	if !ok || el.NamespaceURI() != dom.SVGNS {
		return false
	}
	_, ok = svgAttributes[attributeName]
	return ok
}

var svgAttributes = toSet(
	// geometry
	"cx", "cy", "d", "dx", "dy", "height", "pathLength", "points", "r", "rx", "ry",
	"width", "x", "x1", "x2", "y", "y1", "y2",
	// presentation
	"clip-path", "clip-rule", "color", "display", "fill", "fill-opacity", "fill-rule",
	"filter", "font-family", "font-size", "font-weight", "marker-end", "marker-mid",
	"marker-start", "mask", "opacity", "stop-color", "stop-opacity", "stroke",
	"stroke-dasharray", "stroke-dashoffset", "stroke-linecap", "stroke-linejoin",
	"stroke-opacity", "stroke-width", "text-anchor", "transform", "visibility",
	// structure
	"gradientTransform", "gradientUnits", "offset", "patternUnits", "preserveAspectRatio",
	"viewBox",
)

func toSet(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, s := range items {
		m[s] = struct{}{}
	}
	return m
}
