package invoicepdf

import (
	"strconv"
	"strings"
)

// Fallback colors for values the rasterizer cannot parse.
const (
	fallbackForeground = "#000000"
	fallbackBackground = "#ffffff"
)

// cellPaddingExtra is added to table cell bottom padding so descenders
// are not clipped by the rasterizer.
const cellPaddingExtra = 4.0

// unsupportedColorMarkers identify color functions the rasterizer rejects.
// "lab" also matches "oklab(" and "lab(".
var unsupportedColorMarkers = []string{"oklch", "lab"}

// isUnsupportedColor reports whether v uses an unsupported color function.
func isUnsupportedColor(v string) bool {
	lower := strings.ToLower(v)
	for _, m := range unsupportedColorMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// safeColor returns v when the rasterizer understands it, fallback otherwise.
func safeColor(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" || isUnsupportedColor(v) {
		return fallback
	}
	return v
}

// sanitizeStyles builds the inline style patches that make a staged clone
// safe to rasterize. It never fails: missing properties take their fallback.
func sanitizeStyles(snap StyleSnapshot) []StylePatch {
	patches := make([]StylePatch, 0, len(snap.Elements)+1)

	for _, el := range snap.Elements {
		patches = append(patches, sanitizeElement(el))
	}

	patches = append(patches, StylePatch{
		Index: RootIndex,
		Properties: []StyleProperty{
			{Name: "background", Value: safeColor(snap.Root.BackgroundColor, fallbackBackground)},
		},
	})

	return patches
}

// sanitizeElement produces the declarations written onto one descendant.
func sanitizeElement(el ElementStyle) StylePatch {
	props := []StyleProperty{
		{Name: "color", Value: safeColor(el.Color, fallbackForeground)},
		{Name: "background-color", Value: safeColor(el.BackgroundColor, fallbackBackground)},
		{Name: "border-color", Value: safeColor(el.BorderColor, fallbackForeground)},
		{Name: "fill", Value: safeColor(el.Fill, fallbackForeground)},
		{Name: "stroke", Value: safeColor(el.Stroke, fallbackForeground)},
	}

	if el.Opacity != "" {
		props = append(props, StyleProperty{Name: "opacity", Value: el.Opacity})
	}
	if el.BackgroundImage != "" && el.BackgroundImage != "none" {
		props = append(props, StyleProperty{Name: "background-image", Value: el.BackgroundImage})
	}

	props = append(props,
		StyleProperty{Name: "backdrop-filter", Value: "none"},
		StyleProperty{Name: "filter", Value: "none"},
		StyleProperty{Name: "mix-blend-mode", Value: "normal"},
	)

	switch strings.ToLower(el.Tag) {
	case "td", "th":
		props = append(props, StyleProperty{
			Name:  "padding-bottom",
			Value: formatPixels(parsePixels(el.PaddingBottom) + cellPaddingExtra),
		})
	}

	return StylePatch{Index: el.Index, Properties: props}
}

// parsePixels reads the leading number of a CSS length such as "12.5px".
// Unparseable input counts as zero.
func parsePixels(v string) float64 {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) {
		c := v[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(v[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

func formatPixels(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}
