package views

import (
	"strings"

	"github.com/rivo/tview"

	"github.com/docketapp/docket/internal/profiles"
)

// OnboardingView collects the marketplace profile after first sign-in. It
// stays up until a valid profile is saved or the user signs out.
type OnboardingView struct {
	*tview.Form
	profile profiles.Profile

	onSave    func(profiles.Profile, string)
	onSignOut func()
	photoPath string
}

func NewOnboardingView(theme *Theme) *OnboardingView {
	v := &OnboardingView{Form: tview.NewForm()}
	v.SetBorder(true).SetTitle(" Create Your Profile ")
	v.SetBorderColor(theme.BorderColor)
	v.SetTitleColor(theme.TitleColor)

	v.AddInputField("Username", "", 30, nil, func(t string) { v.profile.Username = t })
	v.AddInputField("Location", "", 40, nil, func(t string) { v.profile.Location = t })
	v.AddInputField("Photo path", "", 40, nil, func(t string) { v.photoPath = strings.TrimSpace(t) })

	v.AddButton("Save", func() {
		if v.onSave != nil {
			v.onSave(v.profile, v.photoPath)
		}
	})
	v.AddButton("Sign Out", func() {
		if v.onSignOut != nil {
			v.onSignOut()
		}
	})
	return v
}

func (v *OnboardingView) SetOnSave(fn func(profiles.Profile, string)) { v.onSave = fn }
func (v *OnboardingView) SetOnSignOut(fn func())                      { v.onSignOut = fn }
