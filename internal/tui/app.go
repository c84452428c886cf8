// Package tui is the terminal front-end: a page per session state, a
// dashboard over the inventory mirror and, in the marketplace build, the
// messaging pages. All remote state arrives through the view model; the
// shell only routes input and redraws.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/docketapp/docket/internal/blobstore"
	"github.com/docketapp/docket/internal/chat"
	"github.com/docketapp/docket/internal/identity"
	"github.com/docketapp/docket/internal/items"
	"github.com/docketapp/docket/internal/profiles"
	"github.com/docketapp/docket/internal/session"
	"github.com/docketapp/docket/internal/tui/model"
	"github.com/docketapp/docket/internal/tui/views"
)

// App is the TUI application shell.
type App struct {
	app         *tview.Application
	pages       *tview.Pages
	vm          *model.ViewModel
	sess        *session.Manager
	items       *items.Syncer
	chat        *chat.Syncer
	auth        identity.Provider
	uploads     blobstore.Uploader
	namespace   string
	logger      *zap.Logger
	marketplace bool

	statusBar  *views.StatusBar
	dashboard  *views.Dashboard
	search     *tview.InputField
	itemForm   *views.ItemForm
	lendPrompt *views.LendPrompt
	confirm    *views.Confirm
	chatList   *views.ChatList
	threadView *views.ThreadView
	composer   *views.Composer
	authView   *views.AuthView
	onboarding *views.OnboardingView
	linkView   *views.LinkView

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp assembles the shell. The marketplace flag decides whether the
// messaging pages and the listing controls exist at all.
func NewApp(vm *model.ViewModel, sess *session.Manager, itemSync *items.Syncer, chatSync *chat.Syncer, auth identity.Provider, uploads blobstore.Uploader, namespace string, logger *zap.Logger, marketplace bool) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := views.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		pages:       tview.NewPages(),
		vm:          vm,
		sess:        sess,
		items:       itemSync,
		chat:        chatSync,
		auth:        auth,
		uploads:     uploads,
		namespace:   namespace,
		logger:      logger,
		marketplace: marketplace,
		statusBar:   views.NewStatusBar(),
		dashboard:   views.NewDashboard(theme),
		itemForm:    views.NewItemForm(theme, marketplace),
		lendPrompt:  views.NewLendPrompt(theme),
		confirm:     views.NewConfirm(),
		chatList:    views.NewChatList(theme),
		threadView:  views.NewThreadView(theme),
		composer:    views.NewComposer(),
		authView:    views.NewAuthView(theme),
		onboarding:  views.NewOnboardingView(theme),
		linkView:    views.NewLinkView(theme),
		ctx:         ctx,
		cancel:      cancel,
	}

	a.search = tview.NewInputField().
		SetLabel(" / ").
		SetFieldWidth(0).
		SetChangedFunc(func(term string) { a.vm.SetSearch(term) })
	a.search.SetDoneFunc(func(key tcell.Key) {
		a.app.SetFocus(a.dashboard)
	})

	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupCallbacks() {
	a.authView.SetOnSignIn(func(email, password string) {
		a.runAuth(func() error { return a.sess.SignIn(a.ctx, email, password) })
	})
	a.authView.SetOnRegister(func(email, password string) {
		a.runAuth(func() error { return a.sess.Register(a.ctx, email, password) })
	})
	a.authView.SetOnToken(func(token string) {
		a.runAuth(func() error { return a.sess.SignInWithToken(a.ctx, token) })
	})
	a.authView.SetOnAnonymous(func() {
		a.runAuth(func() error { return a.sess.SignInAnonymously(a.ctx) })
	})

	a.onboarding.SetOnSave(a.saveProfile)
	a.onboarding.SetOnSignOut(func() { a.sess.SignOut() })

	a.itemForm.SetOnSave(a.saveItem)
	a.itemForm.SetOnCancel(func() { a.toDashboard() })

	a.chatList.SetSelectedFunc(func(row, col int) {
		if th, ok := a.chatList.SelectedThread(); ok {
			a.openThread(th)
		}
	})

	a.composer.SetOnSend(func(text string) {
		threadID := a.chat.OpenID()
		if threadID == "" {
			return
		}
		go func() {
			if err := a.chat.Send(a.ctx, threadID, text); err != nil {
				a.vm.Flash.Set("Send failed: "+err.Error(), 5*time.Second)
			}
		}()
	})
}

func (a *App) setupLayout() {
	dashFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.search, 1, 0, false).
		AddItem(a.dashboard, 0, 1, true)

	threadFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.threadView, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("auth", center(a.authView, 60, 15), true, true)
	a.pages.AddPage("onboarding", center(a.onboarding, 60, 13), true, false)
	a.pages.AddPage("dashboard", dashFlex, true, false)
	a.pages.AddPage("item-form", center(a.itemForm, 64, 21), true, false)
	a.pages.AddPage("lend", center(a.lendPrompt, 46, 3), true, false)
	a.pages.AddPage("confirm", a.confirm, true, false)
	a.pages.AddPage("chat", a.chatList, true, false)
	a.pages.AddPage("thread", threadFlex, true, false)
	a.pages.AddPage("link", center(a.linkView, 70, 40), true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
	a.app.SetInputCapture(a.handleKey)
}

// center wraps a primitive in a flex so it floats at a fixed size.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	page, _ := a.pages.GetFrontPage()

	if event.Key() == tcell.KeyEscape {
		switch page {
		case "thread":
			a.chat.CloseThread()
			a.pages.SwitchToPage("chat")
			a.app.SetFocus(a.chatList)
			return nil
		case "chat", "item-form", "lend", "link":
			a.toDashboard()
			return nil
		}
	}

	// Text inputs consume everything else themselves.
	switch a.app.GetFocus().(type) {
	case *tview.InputField, *tview.Button, *tview.Checkbox:
		return event
	}

	if page != "dashboard" && page != "chat" || event.Key() != tcell.KeyRune {
		return event
	}

	switch event.Rune() {
	case 'q':
		a.Stop()
	case 'a':
		a.itemForm.Load(nil)
		a.pages.SwitchToPage("item-form")
		a.app.SetFocus(a.itemForm)
	case 'e':
		if it, ok := a.dashboard.Selected(); ok {
			a.itemForm.Load(&it)
			a.pages.SwitchToPage("item-form")
			a.app.SetFocus(a.itemForm)
		}
	case 'l':
		a.lendSelected()
	case 'd':
		a.deleteSelected()
	case '/':
		a.app.SetFocus(a.search)
	case 'f':
		a.vm.ToggleQuick()
	case 'v':
		if _, err := a.vm.ToggleMode(); err != nil {
			a.logger.Warn("persisting view mode", zap.Error(err))
		}
	case 'm':
		if a.marketplace {
			a.pages.SwitchToPage("chat")
			a.app.SetFocus(a.chatList)
		}
	case 'L':
		a.showLink()
	case 'o':
		a.sess.SignOut()
	default:
		return event
	}
	return nil
}

func (a *App) runAuth(do func() error) {
	go func() {
		if err := do(); err != nil {
			a.vm.Flash.Set("Sign-in failed: "+err.Error(), 5*time.Second)
		}
	}()
}

func (a *App) saveProfile(p profiles.Profile, photoPath string) {
	go func() {
		if photoPath != "" {
			url, err := a.uploadPhoto(photoPath)
			if err != nil {
				a.vm.Flash.Set("Photo upload failed: "+err.Error(), 5*time.Second)
				return
			}
			p.PhotoURL = url
		}
		if err := a.sess.SaveProfile(a.ctx, p); err != nil {
			a.vm.Flash.Set("Profile rejected: "+err.Error(), 5*time.Second)
		}
	}()
}

func (a *App) saveItem(d items.Draft, photoPath string) {
	go func() {
		if photoPath != "" {
			data, err := os.ReadFile(photoPath)
			if err != nil {
				a.vm.Flash.Set("Photo read failed: "+err.Error(), 5*time.Second)
				return
			}
			d.Photo = data
			d.PhotoContentType = contentTypeForPath(photoPath)
		}
		if err := a.items.Save(a.ctx, d); err != nil {
			a.vm.Flash.Set("Save failed: "+err.Error(), 5*time.Second)
			return
		}
		a.vm.Flash.Set("Saved", 3*time.Second)
		a.app.QueueUpdateDraw(func() { a.toDashboard() })
	}()
}

func (a *App) lendSelected() {
	it, ok := a.dashboard.Selected()
	if !ok {
		return
	}

	// A lent item toggles straight back to available, no prompt.
	if it.Lend != nil {
		go func() {
			if err := a.items.ToggleLend(a.ctx, it.ID, ""); err != nil {
				a.vm.Flash.Set("Return failed: "+err.Error(), 5*time.Second)
			}
		}()
		return
	}

	a.lendPrompt.Open(it.Name)
	a.lendPrompt.SetOnDone(func(borrower string) {
		a.toDashboard()
		if strings.TrimSpace(borrower) == "" {
			return
		}
		go func() {
			if err := a.items.ToggleLend(a.ctx, it.ID, borrower); err != nil {
				a.vm.Flash.Set("Lend failed: "+err.Error(), 5*time.Second)
			}
		}()
	})
	a.pages.SwitchToPage("lend")
	a.app.SetFocus(a.lendPrompt)
}

func (a *App) deleteSelected() {
	it, ok := a.dashboard.Selected()
	if !ok {
		return
	}
	a.confirm.Ask(fmt.Sprintf("Delete %q permanently?", it.Name), func(yes bool) {
		a.toDashboard()
		if !yes {
			return
		}
		go func() {
			if err := a.items.Delete(a.ctx, it.ID); err != nil {
				a.vm.Flash.Set("Delete failed: "+err.Error(), 5*time.Second)
			}
		}()
	})
	a.pages.SwitchToPage("confirm")
	a.app.SetFocus(a.confirm)
}

func (a *App) showLink() {
	token, err := a.auth.IssueLinkToken(a.ctx)
	if err != nil {
		a.linkView.ShowError(err)
	} else {
		a.linkView.ShowToken(token)
	}
	a.pages.SwitchToPage("link")
	a.app.SetFocus(a.linkView)
}

func (a *App) openThread(th chat.Thread) {
	if err := a.chat.OpenThread(th.ID); err != nil {
		a.vm.Flash.Set("Open failed: "+err.Error(), 5*time.Second)
		return
	}
	a.threadView.SetCounterpart(th.Counterpart.Username)
	a.pages.SwitchToPage("thread")
	a.app.SetFocus(a.composer)
}

func (a *App) toDashboard() {
	a.pages.SwitchToPage("dashboard")
	a.app.SetFocus(a.dashboard)
}

// Run starts the shell and blocks until quit.
func (a *App) Run() error {
	if err := a.vm.Start(a.ctx); err != nil {
		return err
	}
	go a.refreshLoop()
	return a.app.Run()
}

// refreshLoop redraws on view-model signals and once a second for the clock
// and flash expiry.
func (a *App) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
		case <-ticker.C:
		}
		a.app.QueueUpdateDraw(a.render)
	}
}

// render reconciles the visible page with the session state, then refreshes
// whichever widgets the page shows.
func (a *App) render() {
	state := a.sess.State()
	a.statusBar.SetState(state)
	a.statusBar.SetWho(a.whoAmI())
	a.statusBar.SetFlash(a.vm.Flash.Get())

	page, _ := a.pages.GetFrontPage()
	switch state {
	case session.SignedOut, session.Authenticating:
		if page != "auth" {
			a.pages.SwitchToPage("auth")
			a.app.SetFocus(a.authView)
		}
		return
	case session.NeedsProfile:
		if page != "onboarding" {
			a.pages.SwitchToPage("onboarding")
			a.app.SetFocus(a.onboarding)
		}
		return
	}

	// Ready: leave gate pages, otherwise stay where the user is.
	if page == "auth" || page == "onboarding" {
		a.toDashboard()
		page = "dashboard"
	}

	switch page {
	case "dashboard":
		a.dashboard.Update(a.vm.VisibleItems(), a.vm.Summary(), a.vm.Mode(), a.vm.Quick())
	case "chat":
		a.chatList.Update(a.chat.Threads())
	case "thread":
		a.threadView.Update(a.chat.Messages(), a.selfUID())
	}
}

func (a *App) whoAmI() string {
	ident := a.sess.Identity()
	if ident == nil {
		return ""
	}
	if _, p := a.sess.Profile(); p != nil {
		return p.Username
	}
	if ident.Anonymous {
		return "anonymous"
	}
	return ident.Email
}

func (a *App) selfUID() string {
	if ident := a.sess.Identity(); ident != nil {
		return ident.UID
	}
	return ""
}

func (a *App) uploadPhoto(path string) (string, error) {
	if a.uploads == nil {
		return "", fmt.Errorf("no object store configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	key := blobstore.ObjectKey(a.namespace, a.selfUID())
	return a.uploads.Upload(a.ctx, key, data, contentTypeForPath(path))
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Stop gracefully shuts down the shell.
func (a *App) Stop() {
	a.cancel()
	a.vm.Stop()
	a.app.Stop()
}
