// Package model is the UI-facing state cache. It folds bus events and the
// syncers' mirrors into the shapes the views render, and signals the shell
// whenever a redraw is due.
package model

import (
	"context"
	"sync"
	"time"

	"github.com/docketapp/docket/internal/bus"
	"github.com/docketapp/docket/internal/chat"
	"github.com/docketapp/docket/internal/items"
	"github.com/docketapp/docket/internal/items/itemview"
	"github.com/docketapp/docket/internal/localstore"
	"github.com/docketapp/docket/internal/session"
)

// ViewModel mediates between the sync layers and the widgets. Views only
// read derived state from here; mutations go through the session manager and
// the syncers directly.
type ViewModel struct {
	mu sync.RWMutex

	session *session.Manager
	items   *items.Syncer
	chat    *chat.Syncer
	local   *localstore.DB
	bus     *bus.Bus

	search string
	quick  itemview.Quick
	mode   itemview.Mode

	Flash Flash

	refreshCh chan struct{}
	unsub     func()
}

func NewViewModel(sess *session.Manager, itemSync *items.Syncer, chatSync *chat.Syncer, local *localstore.DB, b *bus.Bus) *ViewModel {
	return &ViewModel{
		session:   sess,
		items:     itemSync,
		chat:      chatSync,
		local:     local,
		bus:       b,
		quick:     itemview.QuickAll,
		mode:      itemview.ModeList,
		refreshCh: make(chan struct{}, 1),
	}
}

// Start restores the persisted view preference and begins translating bus
// events into refresh signals.
func (vm *ViewModel) Start(ctx context.Context) error {
	mode, err := vm.local.ViewMode()
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.mode = itemview.ModeFromString(mode)
	vm.mu.Unlock()

	events, unsub := vm.bus.Subscribe("", 16)
	vm.unsub = unsub
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-events:
				if e.Kind == bus.KindFlash {
					if msg, ok := e.Payload.(string); ok {
						vm.Flash.Set(msg, 3*time.Second)
					}
				}
				vm.signalRefresh()
			}
		}
	}()
	return nil
}

// Stop releases the bus subscription.
func (vm *ViewModel) Stop() {
	if vm.unsub != nil {
		vm.unsub()
	}
}

// RefreshCh returns the channel that signals a pending redraw.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// VisibleItems applies the active quick filter and search term to the
// inventory mirror.
func (vm *ViewModel) VisibleItems() []items.Item {
	vm.mu.RLock()
	quick, search := vm.quick, vm.search
	vm.mu.RUnlock()
	return itemview.Filter(vm.items.Items(), quick, search)
}

// Summary aggregates the full inventory regardless of the active filter.
func (vm *ViewModel) Summary() itemview.Summary {
	return itemview.Summarize(vm.items.Items())
}

// SetSearch updates the live search term.
func (vm *ViewModel) SetSearch(term string) {
	vm.mu.Lock()
	vm.search = term
	vm.mu.Unlock()
	vm.signalRefresh()
}

func (vm *ViewModel) Search() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.search
}

// ToggleQuick alternates between the full inventory and lent-only views.
func (vm *ViewModel) ToggleQuick() itemview.Quick {
	vm.mu.Lock()
	if vm.quick == itemview.QuickAll {
		vm.quick = itemview.QuickLent
	} else {
		vm.quick = itemview.QuickAll
	}
	q := vm.quick
	vm.mu.Unlock()
	vm.signalRefresh()
	return q
}

func (vm *ViewModel) Quick() itemview.Quick {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.quick
}

// ToggleMode flips list/grid and persists the preference device-locally.
// The in-memory mode flips even if persistence fails; the error only means
// the choice will not survive a restart.
func (vm *ViewModel) ToggleMode() (itemview.Mode, error) {
	vm.mu.Lock()
	vm.mode = vm.mode.Toggle()
	m := vm.mode
	vm.mu.Unlock()
	vm.signalRefresh()

	err := vm.local.SetViewMode(string(m))
	return m, err
}

func (vm *ViewModel) Mode() itemview.Mode {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.mode
}
