package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// InspectorTheme tints the default theme with the highlight colour so that
// selection controls match the detection overlay.
type InspectorTheme struct{}

var _ fyne.Theme = (*InspectorTheme)(nil)

func (t *InspectorTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x1E, G: 0x4F, B: 0xD8, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x1E, G: 0x4F, B: 0xD8, A: 0x60}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *InspectorTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *InspectorTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *InspectorTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
