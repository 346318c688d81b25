package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studyroom/internal/model"
)

type ChatRepo interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	// Recent returns up to limit messages for a room, oldest first
	Recent(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error)
	EnsureIndexes(ctx context.Context) error
}

type chatRepo struct {
	collection *mongo.Collection
}

func NewChatRepo(db *mongo.Database) ChatRepo {
	return &chatRepo{
		collection: db.Collection("chats"),
	}
}

func (r *chatRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *chatRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *chatRepo) Recent(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []*model.ChatMessage
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// Newest-first from the index; callers want oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
