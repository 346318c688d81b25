package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"studyroom/internal/model"
)

// In-memory implementations used by tests and by the server when started
// with STORAGE=memory. All methods return copies.

var (
	_ RoomRepo = (*MemoryRoomRepo)(nil)
	_ UserRepo = (*MemoryUserRepo)(nil)
	_ ChatRepo = (*MemoryChatRepo)(nil)
)

type MemoryRoomRepo struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
}

func NewMemoryRoomRepo() *MemoryRoomRepo {
	return &MemoryRoomRepo{rooms: make(map[string]*model.Room)}
}

func copyRoom(r *model.Room) *model.Room {
	c := *r
	c.Participants = append([]string(nil), r.Participants...)
	return &c
}

func (m *MemoryRoomRepo) Create(ctx context.Context, room *model.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" {
		room.ID = primitive.NewObjectID().Hex()
	}
	if _, ok := m.rooms[room.ID]; ok {
		return ErrDuplicate
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	if room.Status == "" {
		room.Status = model.RoomActive
	}
	m.rooms[room.ID] = copyRoom(room)
	return nil
}

func (m *MemoryRoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, nil
	}
	return copyRoom(r), nil
}

func (m *MemoryRoomRepo) ListActivePublic(ctx context.Context) ([]*model.Room, error) {
	return m.filter(func(r *model.Room) bool {
		return r.Status == model.RoomActive && r.Privacy == model.RoomPublic
	}), nil
}

func (m *MemoryRoomRepo) ListForUser(ctx context.Context, userID string) ([]*model.Room, error) {
	return m.filter(func(r *model.Room) bool {
		return r.CreatorID == userID || r.HasParticipant(userID)
	}), nil
}

func (m *MemoryRoomRepo) filter(keep func(*model.Room) bool) []*model.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Room
	for _, r := range m.rooms {
		if keep(r) {
			out = append(out, copyRoom(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemoryRoomRepo) AddParticipant(ctx context.Context, roomID, userID string) error {
	return m.mutate(roomID, func(r *model.Room) {
		if !r.HasParticipant(userID) {
			r.Participants = append(r.Participants, userID)
		}
	})
}

func (m *MemoryRoomRepo) UpdateName(ctx context.Context, roomID, name string) error {
	return m.mutate(roomID, func(r *model.Room) { r.Name = name })
}

func (m *MemoryRoomRepo) UpdateIntervals(ctx context.Context, roomID string, studyMinutes, breakMinutes int) error {
	return m.mutate(roomID, func(r *model.Room) {
		r.StudyInterval = studyMinutes
		r.BreakInterval = breakMinutes
	})
}

func (m *MemoryRoomRepo) UpdateCode(ctx context.Context, roomID, code string) error {
	return m.mutate(roomID, func(r *model.Room) { r.Code = code })
}

func (m *MemoryRoomRepo) SetStatus(ctx context.Context, roomID string, status model.RoomStatus) error {
	return m.mutate(roomID, func(r *model.Room) {
		r.Status = status
		if status == model.RoomEnded {
			now := time.Now()
			r.EndedAt = &now
		}
	})
}

func (m *MemoryRoomRepo) mutate(roomID string, fn func(*model.Room)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	fn(r)
	return nil
}

type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*model.User)}
}

func (m *MemoryUserRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *MemoryUserRepo) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MemoryUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemoryUserRepo) AddStudySession(ctx context.Context, id string, minutes, streak int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Stats.TotalSessions++
	u.Stats.TotalMinutesStudied += minutes
	u.Stats.CurrentStreak = streak
	u.Stats.LastStudyDate = &at
	return nil
}

func (m *MemoryUserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

type MemoryChatRepo struct {
	mu       sync.RWMutex
	messages []*model.ChatMessage
}

func NewMemoryChatRepo() *MemoryChatRepo {
	return &MemoryChatRepo{}
}

func (m *MemoryChatRepo) EnsureIndexes(ctx context.Context) error { return nil }

func (m *MemoryChatRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.ID == "" {
		msg.ID = primitive.NewObjectID().Hex()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (m *MemoryChatRepo) Recent(ctx context.Context, roomID string, limit int) ([]*model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.ChatMessage
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if m.messages[i].RoomID == roomID {
			c := *m.messages[i]
			out = append(out, &c)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
