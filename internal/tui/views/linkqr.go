package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"
)

// LinkView displays a short-lived device-link token as a scannable QR code
// so a second device can adopt this identity without typing credentials.
type LinkView struct {
	*tview.TextView
}

func NewLinkView(theme *Theme) *LinkView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true).SetTitle(" Link a Device ")
	tv.SetBorderColor(theme.BorderColor)
	tv.SetTitleColor(theme.TitleColor)

	return &LinkView{TextView: tv}
}

// ShowToken renders the token as QR art plus the raw text for manual entry.
func (v *LinkView) ShowToken(token string) {
	v.Clear()
	_, _ = fmt.Fprintf(v, "\n  Scan on the other device:\n\n%s\n  or enter the token manually:\n  [::b]%s[-:-:-]\n\n  [::d]The token expires shortly.",
		RenderQR(token), token)
}

// ShowError displays a failure in place of the code.
func (v *LinkView) ShowError(err error) {
	v.Clear()
	_, _ = fmt.Fprintf(v, "\n\n  Could not issue a link token:\n  %s", err)
}

// RenderQR converts a string to a compact QR code using Unicode half-block
// characters, two bitmap rows per terminal line.
func RenderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top && !bot:
				sb.WriteRune('▀')
			case !top && bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
