// Package groupcolor maps free-form workspace hex colors onto the closed
// set of native tab-group colors. Curated picker presets resolve through a
// fixed table so the visually intended bucket always wins; arbitrary colors
// degrade through an HSL bucketing fallback.
package groupcolor

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"tabspaces/internal/domain"
)

// presets are the color-picker presets, each pre-assigned to a bucket by
// design choice rather than computed.
var presets = map[string]domain.GroupColor{
	"#9AA0A6": domain.ColorGrey,
	"#5F6368": domain.ColorGrey,
	"#E8EAED": domain.ColorGrey,
	"#4285F4": domain.ColorBlue,
	"#1A73E8": domain.ColorBlue,
	"#8AB4F8": domain.ColorBlue,
	"#EA4335": domain.ColorRed,
	"#D93025": domain.ColorRed,
	"#F28B82": domain.ColorRed,
	"#FBBC04": domain.ColorYellow,
	"#F29900": domain.ColorYellow,
	"#FDD663": domain.ColorYellow,
	"#34A853": domain.ColorGreen,
	"#188038": domain.ColorGreen,
	"#81C995": domain.ColorGreen,
	"#FF8BCB": domain.ColorPink,
	"#D01884": domain.ColorPink,
	"#A142F4": domain.ColorPurple,
	"#9334E6": domain.ColorPurple,
	"#C58AF9": domain.ColorPurple,
	"#24C1E0": domain.ColorCyan,
	"#12B5CB": domain.ColorCyan,
}

// Classify maps an arbitrary hex color string (#RGB or #RRGGBB, case
// insensitive, leading # optional) to a native group color. Malformed
// input yields grey.
func Classify(hex string) domain.GroupColor {
	canonical, ok := normalize(hex)
	if !ok {
		return domain.ColorGrey
	}
	if preset, ok := presets[canonical]; ok {
		return preset
	}

	c, err := colorful.Hex(canonical)
	if err != nil {
		return domain.ColorGrey
	}
	h, s, l := c.Hsl()

	if s < 0.15 {
		return domain.ColorGrey
	}
	if l > 0.8 {
		return domain.ColorYellow
	}
	return bucketByHue(h)
}

// bucketByHue assigns a hue (degrees) to a bucket on the hue ring; the
// 345..15 arc wraps around to red.
func bucketByHue(h float64) domain.GroupColor {
	switch {
	case h < 15:
		return domain.ColorRed
	case h < 60:
		return domain.ColorYellow
	case h < 150:
		return domain.ColorGreen
	case h < 200:
		return domain.ColorCyan
	case h < 255:
		return domain.ColorBlue
	case h < 315:
		return domain.ColorPurple
	case h < 345:
		return domain.ColorPink
	default:
		return domain.ColorRed
	}
}

// normalize converts to canonical uppercase "#RRGGBB" form
func normalize(hex string) (string, bool) {
	s := strings.TrimSpace(hex)
	s = strings.TrimPrefix(s, "#")
	s = strings.ToUpper(s)

	switch len(s) {
	case 3:
		var b strings.Builder
		for _, r := range s {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		s = b.String()
	case 6:
	default:
		return "", false
	}

	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", false
		}
	}
	return "#" + s, true
}
