package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"studyroom/internal/config"
	"studyroom/internal/model"
	"studyroom/internal/repository"
)

type demoUser struct {
	username string
	email    string
}

var demoUsers = []demoUser{
	{"ada", "ada@example.com"},
	{"grace", "grace@example.com"},
	{"linus", "linus@example.com"},
}

// Seeds demo accounts (password "password") and a few rooms owned by the
// first account. Existing accounts are left alone.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	users := repository.NewUserRepo(db)
	rooms := repository.NewRoomRepo(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	var ids []string
	for _, du := range demoUsers {
		u := &model.User{Username: du.username, Email: du.email, PasswordHash: string(hash)}
		err := users.Create(ctx, u)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			existing, err := users.GetByEmail(ctx, du.email)
			if err != nil || existing == nil {
				log.Fatal().Err(err).Str("email", du.email).Msg("failed to load existing user")
			}
			ids = append(ids, existing.ID)
			log.Info().Str("username", du.username).Msg("user already exists")
		case err != nil:
			log.Fatal().Err(err).Str("username", du.username).Msg("failed to create user")
		default:
			ids = append(ids, u.ID)
			log.Info().Str("username", du.username).Str("id", u.ID).Msg("created user")
		}
	}

	owner := ids[0]
	demoRooms := []*model.Room{
		{Name: "Morning Focus", StudyInterval: 25, BreakInterval: 5, Privacy: model.RoomPublic},
		{Name: "Deep Work", StudyInterval: 50, BreakInterval: 10, TotalSessions: 3, Privacy: model.RoomPublic},
		{Name: "Thesis Club", StudyInterval: 45, BreakInterval: 15, Privacy: model.RoomPrivate, Code: "1234"},
	}
	for _, r := range demoRooms {
		r.CreatorID = owner
		r.Participants = []string{owner}
		r.Status = model.RoomActive
		if r.TotalSessions == 0 {
			r.TotalSessions = model.DefaultTotalSessions
		}
		if err := rooms.Create(ctx, r); err != nil {
			log.Fatal().Err(err).Str("room", r.Name).Msg("failed to create room")
		}
		log.Info().Str("room", r.Name).Str("id", r.ID).Str("privacy", string(r.Privacy)).Msg("created room")
	}

	log.Info().Int("users", len(ids)).Int("rooms", len(demoRooms)).Msg("seed complete")
}
