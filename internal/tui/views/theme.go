package views

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	TableHeaderFg    tcell.Color
	TableCursorBg    tcell.Color
	TitleColor       tcell.Color
	LentColor        tcell.Color
	ListedColor      tcell.Color
	FlashColor       tcell.Color
}

// DefaultTheme returns the dark theme used by all views.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		TableHeaderFg:    tcell.ColorWhite,
		TableCursorBg:    tcell.ColorAqua,
		TitleColor:       tcell.ColorFuchsia,
		LentColor:        tcell.ColorOrange,
		ListedColor:      tcell.ColorGreen,
		FlashColor:       tcell.ColorNavajoWhite,
	}
}
