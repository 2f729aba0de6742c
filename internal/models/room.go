package models

import "time"

// Room is a user's personal chat room. A user owns at most one.
type Room struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}
