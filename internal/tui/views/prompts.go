package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// LendPrompt asks for a borrower name. Confirming with an empty or
// whitespace-only field cancels; nothing is written.
type LendPrompt struct {
	*tview.InputField
	onDone func(borrower string)
}

func NewLendPrompt(theme *Theme) *LendPrompt {
	input := tview.NewInputField().
		SetLabel(" Lend to: ").
		SetFieldWidth(30)
	input.SetBorder(true).SetTitle(" Lend Item ")
	input.SetBorderColor(theme.BorderFocusColor)

	p := &LendPrompt{InputField: input}
	input.SetDoneFunc(func(key tcell.Key) {
		if p.onDone == nil {
			return
		}
		if key == tcell.KeyEnter {
			p.onDone(p.GetText())
		} else {
			p.onDone("")
		}
	})
	return p
}

// SetOnDone sets the callback; an empty borrower means cancelled.
func (p *LendPrompt) SetOnDone(fn func(borrower string)) { p.onDone = fn }

// Open resets the field for the named item.
func (p *LendPrompt) Open(itemName string) {
	p.SetTitle(fmt.Sprintf(" Lend %s ", itemName))
	p.SetText("")
}

// Confirm is the synchronous yes/no modal used for irreversible actions.
type Confirm struct {
	*tview.Modal
	onAnswer func(yes bool)
}

func NewConfirm() *Confirm {
	c := &Confirm{Modal: tview.NewModal()}
	c.AddButtons([]string{"Yes", "No"})
	c.SetDoneFunc(func(_ int, label string) {
		if c.onAnswer != nil {
			c.onAnswer(label == "Yes")
		}
	})
	return c
}

// Ask arms the modal with a question and its answer callback.
func (c *Confirm) Ask(question string, fn func(yes bool)) {
	c.SetText(question)
	c.onAnswer = fn
}
