package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/session"
)

// StatusBar is the persistent bottom line: session state, who is signed in,
// the clock and any transient flash notice.
type StatusBar struct {
	*tview.TextView
	state string
	who   string
	flash string
}

func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, state: string(session.SignedOut)}
}

// SetState updates the session state display.
func (sb *StatusBar) SetState(state session.State) {
	sb.state = string(state)
	sb.render()
}

// SetWho updates the signed-in identity display (username or email).
func (sb *StatusBar) SetWho(who string) {
	sb.who = who
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	who := sb.who
	if who == "" {
		who = "signed out"
	}
	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" [::b]docket[-:-:-] | %s | %s | %s", sb.state, who, clock)
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
