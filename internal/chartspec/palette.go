package chartspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/derickschaefer/tally/internal/model"
)

// PaletteSize is the number of colors in every scheme.
const PaletteSize = 5

// FillAlpha is the opacity applied to the primary color for filled areas.
const FillAlpha = 0.15

var palettes = map[model.ColorScheme][PaletteSize]string{
	model.SchemeBlue:   {"#3B82F6", "#60A5FA", "#1D4ED8", "#93C5FD", "#2563EB"},
	model.SchemeGreen:  {"#10B981", "#34D399", "#059669", "#6EE7B7", "#047857"},
	model.SchemePurple: {"#8B5CF6", "#A78BFA", "#7C3AED", "#C4B5FD", "#6D28D9"},
	model.SchemeOrange: {"#F59E0B", "#FBBF24", "#D97706", "#FCD34D", "#B45309"},
	model.SchemeRed:    {"#EF4444", "#F87171", "#DC2626", "#FCA5A5", "#B91C1C"},
}

// Palette returns the ordered colors of scheme. Unknown schemes fall back to
// blue so the builder stays total.
func Palette(scheme model.ColorScheme) []string {
	p, ok := palettes[scheme]
	if !ok {
		p = palettes[model.SchemeBlue]
	}
	out := make([]string, PaletteSize)
	copy(out, p[:])
	return out
}

// Primary returns the first color of scheme.
func Primary(scheme model.ColorScheme) string {
	return Palette(scheme)[0]
}

// ColorAt returns the palette color for category i, wrapping around.
func ColorAt(scheme model.ColorScheme, i int) string {
	return Palette(scheme)[i%PaletteSize]
}

// WithAlpha converts a "#RRGGBB" color to an rgba() string with opacity a.
// Strings that are not six-digit hex colors are returned unchanged.
func WithAlpha(hex string, a float64) string {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return hex
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return hex
	}
	r, g, b := (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(a, 'f', -1, 64))
}
