// Package chat mirrors the current user's conversation threads and, for one
// thread at a time, its message history. Threads are created by an external
// flow; this layer only reads them and appends messages.
package chat

import (
	"fmt"

	"github.com/docketapp/docket/internal/profiles"
)

// ThreadCollection holds one document per conversation.
const ThreadCollection = "threads"

// MessageCollection names the per-thread message subcollection.
func MessageCollection(threadID string) string {
	return fmt.Sprintf("threads/%s/messages", threadID)
}

// Summary is the denormalized last-message preview stored on the thread. It
// can lag behind the message sequence when the secondary write fails.
type Summary struct {
	Text     string
	SenderID string
	SentAt   int64
}

// Thread is one conversation in the list, annotated with the resolved profile
// of the other participant.
type Thread struct {
	ID            string
	Participants  []string
	LastMessage   *Summary
	LastMessageAt int64
	Counterpart   profiles.Profile
}

// Message is a single entry in a thread, append-only and server-timestamped.
type Message struct {
	ID       string
	Text     string
	SenderID string
	SentAt   int64
}
