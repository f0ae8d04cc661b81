// Package base holds the color palette and small string helpers shared
// by every debug-TUI view, kept separate from the views themselves so
// a future inspector screen doesn't have to redefine them.
package base

import "github.com/charmbracelet/lipgloss"

// ColorPalette is a named set of colors for one theme.
type ColorPalette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

var DarkPalette = ColorPalette{
	Primary:   lipgloss.Color("#7C3AED"),
	Secondary: lipgloss.Color("#06B6D4"),
	Accent:    lipgloss.Color("#10B981"),
	Success:   lipgloss.Color("#10B981"),
	Warning:   lipgloss.Color("#F59E0B"),
	Error:     lipgloss.Color("#EF4444"),
	Muted:     lipgloss.Color("#94A3B8"),
}

var LightPalette = ColorPalette{
	Primary:   lipgloss.Color("#5A56E0"),
	Secondary: lipgloss.Color("#EE6FF8"),
	Accent:    lipgloss.Color("#02BA84"),
	Success:   lipgloss.Color("#02BA84"),
	Warning:   lipgloss.Color("#FF8C00"),
	Error:     lipgloss.Color("#FF5F56"),
	Muted:     lipgloss.Color("#9B9B9B"),
}

// AdaptiveColor resolves to either palette depending on terminal background.
type AdaptiveColor = lipgloss.AdaptiveColor

var (
	AdaptivePrimary = AdaptiveColor{
		Light: string(LightPalette.Primary),
		Dark:  string(DarkPalette.Primary),
	}
	AdaptiveSecondary = AdaptiveColor{
		Light: string(LightPalette.Secondary),
		Dark:  string(DarkPalette.Secondary),
	}
	AdaptiveSuccess = AdaptiveColor{
		Light: string(LightPalette.Success),
		Dark:  string(DarkPalette.Success),
	}
	AdaptiveWarning = AdaptiveColor{
		Light: string(LightPalette.Warning),
		Dark:  string(DarkPalette.Warning),
	}
	AdaptiveError = AdaptiveColor{
		Light: string(LightPalette.Error),
		Dark:  string(DarkPalette.Error),
	}
	AdaptiveMuted = AdaptiveColor{
		Light: string(LightPalette.Muted),
		Dark:  string(DarkPalette.Muted),
	}
)
