// Package badge turns the overall risk score into a repository badge: a
// letter grade plus color, rendered as a self-contained SVG or a shields.io
// endpoint JSON.
package badge

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/KumVivek/copilot-instruction-agent/internal/safefile"
)

// DefaultLabel is the badge label unless the caller overrides it.
const DefaultLabel = "code risk"

// Style controls the badge visual style.
type Style string

const (
	StyleFlat       Style = "flat"
	StyleFlatSquare Style = "flat-square"
)

// ParseStyle parses a style string, defaulting to flat.
func ParseStyle(s string) Style {
	if s == "flat-square" {
		return StyleFlatSquare
	}
	return StyleFlat
}

// Grade maps an overall risk score in [0,10] to a letter grade and badge
// color. Higher scores are riskier. Only the grade and color are exposed,
// no finding details leak into the badge.
func Grade(overall float64) (grade string, color string) {
	switch {
	case overall <= 0:
		return "A+", "brightgreen"
	case overall < 2:
		return "A", "green"
	case overall < 4:
		return "B", "yellowgreen"
	case overall < 6:
		return "C", "yellow"
	case overall < 8:
		return "D", "orange"
	default:
		return "F", "red"
	}
}

type shieldsEndpoint struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// ShieldsJSON returns a shields.io endpoint JSON string.
func ShieldsJSON(label, grade, color string) string {
	data := shieldsEndpoint{
		SchemaVersion: 1,
		Label:         label,
		Message:       grade,
		Color:         color,
	}
	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

// ShieldsURL returns a shields.io static badge URL for embedding in a README.
func ShieldsURL(label, grade, color string) string {
	return fmt.Sprintf("https://img.shields.io/badge/%s-%s-%s",
		shieldsEscape(label), shieldsEscape(grade), shieldsEscape(color))
}

// Static badge path segments double literal dashes and underscores and turn
// spaces into underscores.
func shieldsEscape(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, " ", "_")
	return url.PathEscape(s)
}

// WriteSVG renders the badge for the given overall risk score and writes it
// to path.
func WriteSVG(path, label string, overall float64, style Style) error {
	grade, color := Grade(overall)
	svg := RenderSVG(label, grade, color, style)
	if err := safefile.WriteFileAtomic(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("write badge svg: %w", err)
	}
	return nil
}

// hexForColor maps color names to hex values used in the badge.
var hexForColor = map[string]string{
	"brightgreen": "#4c1",
	"green":       "#97ca00",
	"yellowgreen": "#a4a61d",
	"yellow":      "#dfb317",
	"orange":      "#fe7d37",
	"red":         "#e05d44",
}

// RenderSVG generates a self-contained SVG badge string.
func RenderSVG(label, grade, color string, style Style) string {
	hex, ok := hexForColor[color]
	if !ok {
		hex = "#9f9f9f"
	}

	labelWidth := float64(len(label))*6.5 + 10
	gradeWidth := float64(len(grade))*7.5 + 10
	totalWidth := labelWidth + gradeWidth

	rx := 3
	if style == StyleFlatSquare {
		rx = 0
	}

	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="20">
  <linearGradient id="b" x2="0" y2="100%%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>
  <clipPath id="a">
    <rect width="%.0f" height="20" rx="%d" fill="#fff"/>
  </clipPath>
  <g clip-path="url(#a)">
    <path fill="#555" d="M0 0h%.0fv20H0z"/>
    <path fill="%s" d="M%.0f 0h%.0fv20H%.0fz"/>
    <path fill="url(#b)" d="M0 0h%.0fv20H0z"/>
  </g>
  <g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="11">
    <text x="%.1f" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%.1f" y="14">%s</text>
    <text x="%.1f" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%.1f" y="14">%s</text>
  </g>
</svg>`,
		totalWidth,
		totalWidth,
		rx,
		labelWidth,
		hex,
		labelWidth, gradeWidth, labelWidth,
		totalWidth,
		labelWidth/2, label,
		labelWidth/2, label,
		labelWidth+gradeWidth/2, grade,
		labelWidth+gradeWidth/2, grade,
	)
}
