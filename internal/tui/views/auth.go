package views

import (
	"github.com/rivo/tview"
)

// AuthView gates the application while signed out: email/password sign-in,
// registration, device-link token redemption and an anonymous entry.
type AuthView struct {
	*tview.Form
	email    string
	password string
	token    string

	onSignIn    func(email, password string)
	onRegister  func(email, password string)
	onToken     func(token string)
	onAnonymous func()
}

func NewAuthView(theme *Theme) *AuthView {
	v := &AuthView{Form: tview.NewForm()}
	v.SetBorder(true).SetTitle(" Sign In ")
	v.SetBorderColor(theme.BorderColor)
	v.SetTitleColor(theme.TitleColor)

	v.AddInputField("Email", "", 40, nil, func(t string) { v.email = t })
	v.AddPasswordField("Password", "", 40, '*', func(t string) { v.password = t })
	v.AddInputField("Link token", "", 40, nil, func(t string) { v.token = t })

	v.AddButton("Sign In", func() {
		if v.onSignIn != nil {
			v.onSignIn(v.email, v.password)
		}
	})
	v.AddButton("Register", func() {
		if v.onRegister != nil {
			v.onRegister(v.email, v.password)
		}
	})
	v.AddButton("Use Token", func() {
		if v.onToken != nil {
			v.onToken(v.token)
		}
	})
	v.AddButton("Anonymous", func() {
		if v.onAnonymous != nil {
			v.onAnonymous()
		}
	})
	return v
}

func (v *AuthView) SetOnSignIn(fn func(email, password string))   { v.onSignIn = fn }
func (v *AuthView) SetOnRegister(fn func(email, password string)) { v.onRegister = fn }
func (v *AuthView) SetOnToken(fn func(token string))              { v.onToken = fn }
func (v *AuthView) SetOnAnonymous(fn func())                      { v.onAnonymous = fn }
