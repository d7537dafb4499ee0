// Package overlaystring provides Unicode-aware string truncation for
// the status banner and overlay panels, where a naive byte or rune
// count would misjudge a CJK or emoji-heavy transcript's on-screen
// width and either overflow the banner or truncate mid-cluster.
package overlaystring

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Width returns s's on-screen column width.
func Width(s string) int {
	return runewidth.StringWidth(s)
}

// SafePrefix returns the longest prefix of s whose display width does
// not exceed maxWidth, breaking only on grapheme cluster boundaries so
// a truncation never splits a multi-rune emoji or combining sequence.
// Never panics, and never returns a string wider than maxWidth.
func SafePrefix(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	var out []byte
	width := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		cluster := gr.Str()
		w := runewidth.StringWidth(cluster)
		if width+w > maxWidth {
			break
		}
		out = append(out, cluster...)
		width += w
	}
	return string(out)
}

// SafeSuffix mirrors SafePrefix from the end of the string, used when
// the overlay wants to show the tail of a long transcript or path.
func SafeSuffix(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	clusters := collectGraphemes(s)
	width := 0
	start := len(clusters)
	for i := len(clusters) - 1; i >= 0; i-- {
		w := runewidth.StringWidth(clusters[i])
		if width+w > maxWidth {
			break
		}
		width += w
		start = i
	}
	out := make([]byte, 0, len(s))
	for _, c := range clusters[start:] {
		out = append(out, c...)
	}
	return string(out)
}

// Ellipsize truncates s to fit within maxWidth columns, appending "…"
// (width 1) when truncation occurs. maxWidth < 1 returns an empty
// string; the result is always within maxWidth columns.
func Ellipsize(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if Width(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	prefix := SafePrefix(s, maxWidth-1)
	return prefix + "…"
}

func collectGraphemes(s string) []string {
	var clusters []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}
	return clusters
}
