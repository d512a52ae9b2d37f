package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/model"
)

// GetChatRoom loads a room with its messages in order
func (s *Store) GetChatRoom(ctx context.Context, id string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at").Order("id")
		}).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "chat room "+id)
	}
	return &room, nil
}

// AddMessage appends a message to an existing room
func (s *Store) AddMessage(ctx context.Context, msg *model.Message) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.ChatRoom{}).Where("id = ?", msg.RoomID).Count(&count).Error; err != nil {
		return fmt.Errorf("look up chat room: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("chat room %s: %w", msg.RoomID, ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("add message: %w", err)
	}
	return nil
}
