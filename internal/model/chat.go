package model

import "time"

// MessageKind distinguishes generated messages from user messages
type MessageKind string

const (
	MessageSystem MessageKind = "system"
	MessageUser   MessageKind = "user"
)

// ChatRoom is the discussion room created alongside every report
type ChatRoom struct {
	ID        string    `json:"id" gorm:"primaryKey;size:48"`
	ReportID  string    `json:"report_id" gorm:"size:36;uniqueIndex"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`

	Messages []Message `json:"-" gorm:"foreignKey:RoomID;references:ID"`
}

// Message is a single chat message
type Message struct {
	ID        string      `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string      `json:"room_id" gorm:"size:48;index"`
	SenderID  string      `json:"sender_id" gorm:"size:64"`
	Kind      MessageKind `json:"kind" gorm:"size:16"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}
