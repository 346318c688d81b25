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

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	ListActivePublic(ctx context.Context) ([]*model.Room, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Room, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
	UpdateName(ctx context.Context, roomID, name string) error
	UpdateIntervals(ctx context.Context, roomID string, studyMinutes, breakMinutes int) error
	UpdateCode(ctx context.Context, roomID, code string) error
	SetStatus(ctx context.Context, roomID string, status model.RoomStatus) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	if room.ID == "" {
		room.ID = primitive.NewObjectID().Hex()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	if room.Status == "" {
		room.Status = model.RoomActive
	}

	_, err := r.collection.InsertOne(ctx, room)
	return err
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Room not found
		}
		return nil, err
	}

	return &room, nil
}

func (r *roomRepo) ListActivePublic(ctx context.Context) ([]*model.Room, error) {
	return r.find(ctx, bson.M{"status": model.RoomActive, "privacy": model.RoomPublic})
}

func (r *roomRepo) ListForUser(ctx context.Context, userID string) ([]*model.Room, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"creator": userID},
		bson.M{"participants": userID},
	}})
}

func (r *roomRepo) find(ctx context.Context, filter bson.M) ([]*model.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

// AddParticipant is idempotent; the persisted list only ever grows
func (r *roomRepo) AddParticipant(ctx context.Context, roomID, userID string) error {
	return r.update(ctx, roomID, bson.M{"$addToSet": bson.M{"participants": userID}})
}

func (r *roomRepo) UpdateName(ctx context.Context, roomID, name string) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{"name": name}})
}

func (r *roomRepo) UpdateIntervals(ctx context.Context, roomID string, studyMinutes, breakMinutes int) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{
		"studyInterval": studyMinutes,
		"breakInterval": breakMinutes,
	}})
}

func (r *roomRepo) UpdateCode(ctx context.Context, roomID, code string) error {
	return r.update(ctx, roomID, bson.M{"$set": bson.M{"code": code}})
}

func (r *roomRepo) SetStatus(ctx context.Context, roomID string, status model.RoomStatus) error {
	set := bson.M{"status": status}
	if status == model.RoomEnded {
		set["endedAt"] = time.Now()
	}
	return r.update(ctx, roomID, bson.M{"$set": set})
}

func (r *roomRepo) update(ctx context.Context, roomID string, update bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": roomID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
