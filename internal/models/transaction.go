package models

import "time"

type TransactionType string

const (
	TypePurchase     TransactionType = "purchase"
	TypeInGame       TransactionType = "in-game"
	TypeSubscription TransactionType = "subscription"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypePurchase, TypeInGame, TypeSubscription:
		return true
	}
	return false
}

type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
	PlatformConsole Platform = "console"
)

// Platforms is the closed universe used by the event source.
var Platforms = []Platform{PlatformWeb, PlatformMobile, PlatformDesktop, PlatformConsole}

// Transaction is a cleaned gaming transaction as admitted to the sink.
// game_id and location_id point into the pre-seeded reference tables
// (1..10 and 1..15); no referential check happens at this layer.
type Transaction struct {
	GameID          int             `json:"game_id"`
	LocationID      int             `json:"location_id"`
	UserID          string          `json:"user_id"`
	Type            TransactionType `json:"transaction_type"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionDate time.Time       `json:"transaction_date"`
	Platform        Platform        `json:"platform"`
	SessionDuration *int            `json:"session_duration"`
	ItemsPurchased  int             `json:"items_purchased"`
}

// Event is the wire form emitted by the streaming source, one JSON object
// per line. The envelope fields (event_id, event_timestamp, source) are
// pass-through and are not persisted.
type Event struct {
	EventID         string          `json:"event_id"`
	GameID          int             `json:"game_id"`
	LocationID      int             `json:"location_id"`
	UserID          string          `json:"user_id"`
	Type            TransactionType `json:"transaction_type"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionDate string          `json:"transaction_date"`
	Platform        Platform        `json:"platform"`
	SessionDuration *int            `json:"session_duration"`
	ItemsPurchased  int             `json:"items_purchased"`
	EventTimestamp  string          `json:"event_timestamp"`
	Source          string          `json:"source"`
}
