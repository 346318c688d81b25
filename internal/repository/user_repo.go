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

type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// AddStudySession increments the session and minute totals in place and
	// sets the streak fields. Concurrent credits for one user never overwrite
	// each other's totals.
	AddStudySession(ctx context.Context, id string, minutes, streak int, at time.Time) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	EnsureIndexes(ctx context.Context) error
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &userRepo{
		collection: db.Collection("users"),
	}
}

func (r *userRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) AddStudySession(ctx context.Context, id string, minutes, streak int, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"totalSessions": 1, "totalMinutesStudied": minutes},
		"$set": bson.M{"currentStreak": streak, "lastStudyDate": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	return err
}
