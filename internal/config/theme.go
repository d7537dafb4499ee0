package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ColorCapability is the resolved color mode for the outer terminal.
type ColorCapability int

const (
	ColorNone ColorCapability = iota
	ColorANSI
	ColorTrueColor
)

// TerminalColorHints captures the signals the PTY session's OSC
// capability replies need: the outer terminal's current
// foreground/background (for OSC 10/11 style fallback answers) and the
// raw TERM/COLORTERM strings forwarded to the child.
type TerminalColorHints struct {
	OscFg     string
	OscBg     string
	ColorFGBG string
	Term      string
	ColorTerm string
}

// ResolveColorCapability applies NO_COLOR / COLORTERM / --no-color as the
// environment-variable contract for color output. noColorFlag takes
// precedence, then NO_COLOR, then COLORTERM, then termenv's own profile
// detection.
func ResolveColorCapability(noColorFlag bool) ColorCapability {
	if noColorFlag {
		return ColorNone
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return ColorNone
	}
	switch strings.ToLower(os.Getenv("COLORTERM")) {
	case "truecolor", "24bit":
		return ColorTrueColor
	}
	switch {
	case termenv.ColorProfile() >= termenv.TrueColor:
		return ColorTrueColor
	case termenv.ColorProfile() > termenv.Ascii:
		return ColorANSI
	default:
		return ColorNone
	}
}

// DetectTerminalColorHints captures current terminal colors for OSC 10/11
// fallback answers plus a COLORFGBG hint for palette selection. Non-TTY
// stdout (e.g. under test) yields only the environment-derived fields.
func DetectTerminalColorHints(stdout *os.File) TerminalColorHints {
	hints := TerminalColorHints{
		Term:      os.Getenv("TERM"),
		ColorTerm: os.Getenv("COLORTERM"),
		ColorFGBG: os.Getenv("COLORFGBG"),
	}

	if !isatty.IsTerminal(stdout.Fd()) {
		return hints
	}

	output := termenv.NewOutput(stdout)
	if fg := output.ForegroundColor(); fg != nil {
		hints.OscFg = colorToX11(fg)
	}
	if bg := output.BackgroundColor(); bg != nil {
		hints.OscBg = colorToX11(bg)
	}
	if hints.ColorFGBG == "" {
		if output.HasDarkBackground() {
			hints.ColorFGBG = "15;0"
		} else {
			hints.ColorFGBG = "0;15"
		}
	}
	return hints
}

// FallbackOSCPalette derives OSC 10/11-compatible X11 rgb values from a
// COLORFGBG string when the terminal itself did not answer an OSC query.
func FallbackOSCPalette(colorfgbg string) (fg, bg string) {
	parts := strings.Split(strings.TrimSpace(colorfgbg), ";")
	bgDark := true
	bgField := ""
	if len(parts) >= 2 {
		bgField = strings.TrimSpace(parts[1])
	} else if len(parts) == 1 {
		bgField = strings.TrimSpace(parts[0])
	}
	if bgField != "" {
		if idx, err := strconv.Atoi(bgField); err == nil {
			bgDark = idx < 8
		}
	}
	if bgDark {
		return "rgb:ffff/ffff/ffff", "rgb:0000/0000/0000"
	}
	return "rgb:0000/0000/0000", "rgb:ffff/ffff/ffff"
}

// colorToX11 converts a termenv.Color to X11 "rgb:" format, used for OSC
// 10/11 replies answered on behalf of the wrapped CLI.
func colorToX11(c termenv.Color) string {
	if c == nil {
		return ""
	}
	if v, ok := c.(termenv.RGBColor); ok {
		hex := string(v)
		if len(hex) == 7 && hex[0] == '#' {
			r, _ := strconv.ParseUint(hex[1:3], 16, 8)
			g, _ := strconv.ParseUint(hex[3:5], 16, 8)
			b, _ := strconv.ParseUint(hex[5:7], 16, 8)
			return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
		}
	}
	rgb := termenv.ConvertToRGB(c)
	r := uint8(rgb.R*255 + 0.5)
	g := uint8(rgb.G*255 + 0.5)
	b := uint8(rgb.B*255 + 0.5)
	return fmt.Sprintf("rgb:%04x/%04x/%04x", uint16(r)*0x101, uint16(g)*0x101, uint16(b)*0x101)
}
