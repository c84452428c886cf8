package views

import (
	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/chat"
)

// ChatList is the conversation table, newest activity first.
type ChatList struct {
	*tview.Table
	threads []chat.Thread
}

func NewChatList(theme *Theme) *ChatList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Messages ")
	table.SetBorderColor(theme.BorderColor)
	table.SetTitleColor(theme.TitleColor)

	return &ChatList{Table: table}
}

// Update refreshes the table from a fresh thread mirror.
func (cl *ChatList) Update(threads []chat.Thread) {
	cl.threads = threads
	cl.Clear()

	cl.SetCell(0, 0, tview.NewTableCell(" With").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, th := range threads {
		row := i + 1
		preview, when := "", int64(0)
		if th.LastMessage != nil {
			preview = th.LastMessage.Text
			when = th.LastMessage.SentAt
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+th.Counterpart.Username).SetMaxWidth(24).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+preview).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(when)).SetMaxWidth(12))
	}
}

// SelectedThread returns the thread under the cursor, if any.
func (cl *ChatList) SelectedThread() (chat.Thread, bool) {
	row, _ := cl.GetSelection()
	idx := row - 1 // header row
	if idx >= 0 && idx < len(cl.threads) {
		return cl.threads[idx], true
	}
	return chat.Thread{}, false
}
