package db

import (
	"time"

	"github.com/google/uuid"
)

const journalTable = "subscription_journal"

// JournalEntry is a row in the subscription_journal table.
type JournalEntry struct {
	ID        uuid.UUID `json:"id"`
	Callsign  string    `json:"callsign"`
	ChannelID uint32    `json:"channel_id"`
	Event     string    `json:"event"`
	Client    string    `json:"client"`
	Status    string    `json:"status"`
	Accepted  bool      `json:"accepted"`
	Code      int       `json:"code"`
	Created   time.Time `json:"created"`
}
