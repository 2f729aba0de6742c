package models

import "time"

type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageSummary is the public projection returned by history listings.
type MessageSummary struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}
