package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/chat"
)

// ThreadView renders the open conversation, oldest message first.
type ThreadView struct {
	*tview.TextView
	counterpart string
}

func NewThreadView(theme *Theme) *ThreadView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Conversation ")
	tv.SetBorderColor(theme.BorderColor)
	tv.SetTitleColor(theme.TitleColor)

	return &ThreadView{TextView: tv}
}

// SetCounterpart updates the title with the other participant's username.
func (tv *ThreadView) SetCounterpart(username string) {
	tv.counterpart = username
	tv.SetTitle(fmt.Sprintf(" %s ", username))
}

// Update re-renders the conversation from a fresh message mirror.
func (tv *ThreadView) Update(msgs []chat.Message, selfUID string) {
	tv.Clear()

	for _, m := range msgs {
		sender := tv.counterpart
		if m.SenderID == selfUID {
			sender = "You"
		}
		_, _ = fmt.Fprintf(tv, "[::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
			sender, formatTimestamp(m.SentAt), m.Text)
	}

	tv.ScrollToEnd()
}
