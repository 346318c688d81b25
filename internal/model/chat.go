package model

import "time"

// MaxMessageLength is the longest chat message accepted after sanitizing
const MaxMessageLength = 500

// ChatMessage is a persisted chat line
type ChatMessage struct {
	ID        string    `json:"id" bson:"_id"`
	RoomID    string    `json:"roomId" bson:"roomId"`
	SenderID  string    `json:"senderId" bson:"senderId"`
	Username  string    `json:"username" bson:"username"`
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
