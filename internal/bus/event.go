package bus

import "time"

// Event kinds published by the application layers. Subscribers filter by
// namespace prefix, e.g. "items." receives every item-layer event.
const (
	KindSessionChanged  = "session.state_changed"
	KindSessionIdentity = "session.identity_changed"
	KindItemsSnapshot   = "items.snapshot"
	KindItemsError      = "items.error"
	KindChatThreads     = "chat.threads"
	KindChatMessages    = "chat.messages"
	KindFlash           = "ui.flash"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
