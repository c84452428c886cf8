package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/items"
)

// ItemForm is the add/edit modal. The same form serves both flows; editing
// pre-fills the fields and keeps the draft's identity.
type ItemForm struct {
	*tview.Form
	draft     items.Draft
	photoPath string
	onSave    func(items.Draft, string)
	onCancel  func()
}

func NewItemForm(theme *Theme, marketplace bool) *ItemForm {
	f := &ItemForm{Form: tview.NewForm()}
	f.SetBorder(true)
	f.SetBorderColor(theme.BorderFocusColor)
	f.SetTitleColor(theme.TitleColor)

	f.AddInputField("Name", "", 40, nil, func(v string) { f.draft.Name = v })
	f.AddInputField("Category", "", 40, nil, func(v string) { f.draft.Category = v })
	f.AddInputField("Location", "", 40, nil, func(v string) { f.draft.Location = v })
	f.AddInputField("Price", "", 12, acceptPrice, func(v string) {
		f.draft.Price, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	})
	f.AddInputField("Notes", "", 40, nil, func(v string) { f.draft.Notes = v })
	f.AddInputField("Photo path", "", 40, nil, func(v string) { f.photoPath = strings.TrimSpace(v) })
	if marketplace {
		f.AddCheckbox("Listed for sale", false, func(v bool) { f.draft.IsListed = v })
	}

	f.AddButton("Save", func() {
		if f.onSave != nil {
			f.onSave(f.draft, f.photoPath)
		}
	})
	f.AddButton("Cancel", func() {
		if f.onCancel != nil {
			f.onCancel()
		}
	})
	return f
}

// SetOnSave sets the callback invoked with the edited draft and the local
// photo file path chosen by the user, empty when no new photo was picked.
func (f *ItemForm) SetOnSave(fn func(items.Draft, string)) { f.onSave = fn }

// SetOnCancel sets the callback for the cancel button.
func (f *ItemForm) SetOnCancel(fn func()) { f.onCancel = fn }

// Load prepares the form for a new item or pre-fills it from an existing one.
func (f *ItemForm) Load(it *items.Item) {
	f.photoPath = ""
	if it == nil {
		f.draft = items.Draft{}
		f.SetTitle(" New Item ")
	} else {
		f.draft = items.Draft{
			ID:       it.ID,
			Name:     it.Name,
			Category: it.Category,
			Location: it.Location,
			Price:    it.Price,
			Notes:    it.Notes,
			PhotoURL: it.PhotoURL,
			IsListed: it.IsListed,
		}
		f.SetTitle(fmt.Sprintf(" Edit %s ", it.Name))
	}

	f.fill("Name", f.draft.Name)
	f.fill("Category", f.draft.Category)
	f.fill("Location", f.draft.Location)
	f.fill("Price", trimZero(f.draft.Price))
	f.fill("Notes", f.draft.Notes)
	f.fill("Photo path", "")
	if idx := f.GetFormItemIndex("Listed for sale"); idx >= 0 {
		f.GetFormItem(idx).(*tview.Checkbox).SetChecked(f.draft.IsListed)
	}
	f.SetFocus(0)
}

func (f *ItemForm) fill(label, value string) {
	if idx := f.GetFormItemIndex(label); idx >= 0 {
		f.GetFormItem(idx).(*tview.InputField).SetText(value)
	}
}

func acceptPrice(text string, _ rune) bool {
	if text == "" {
		return true
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

func trimZero(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
