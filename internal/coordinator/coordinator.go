// Package coordinator owns the live state of every study room: rosters,
// admin election, the shared study/break timer and session progress.
//
// All room state is confined to a single goroutine (Run). Socket events,
// timer ticks and the continuations of storage reads are queued onto that
// goroutine as closures and each runs to completion before the next starts,
// so compound updates like remove-then-promote never interleave. Storage
// writes are fire-and-forget: they run on their own goroutines, failures are
// logged, and the in-memory broadcast never waits for them.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"studyroom/internal/cache"
	"studyroom/internal/config"
	"studyroom/internal/events"
	"studyroom/internal/model"
	"studyroom/internal/service"
)

// ErrStopped is returned by calls made after Run has exited
var ErrStopped = errors.New("coordinator stopped")

// AccessVerifier gates joins against persisted rooms
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, roomID, userID, code string) (*service.AccessResult, error)
	Describe(ctx context.Context, roomID, userID string) (*service.AccessInfo, error)
}

// RoomStore persists room edits made through the socket
type RoomStore interface {
	UpdateName(ctx context.Context, roomID, name string) error
	UpdateIntervals(ctx context.Context, roomID string, studyMinutes, breakMinutes int) error
	UpdateCode(ctx context.Context, roomID, code string) error
	SetStatus(ctx context.Context, roomID string, status model.RoomStatus) error
}

// ChatStore sanitizes, saves and replays chat messages
type ChatStore interface {
	Sanitize(raw string) (string, error)
	Save(ctx context.Context, msg *model.ChatMessage) error
	History(ctx context.Context, roomID string) ([]*model.ChatMessage, error)
}

// StatsRecorder credits users for completed study phases
type StatsRecorder interface {
	RecordStudySession(ctx context.Context, userID, username string, minutes int) error
}

// Identity is an authenticated connection
type Identity struct {
	ConnID   string
	UserID   string
	Username string
}

type connState struct {
	Identity
	rooms map[string]struct{}
	// room id -> generation of the join awaiting its access check
	pending map[string]uint64
}

// RuntimeStats is reported by the health endpoint
type RuntimeStats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type Coordinator struct {
	cfg      config.RoomConfig
	clock    clockwork.Clock
	registry *Registry
	conns    map[string]*connState

	access AccessVerifier
	rooms  RoomStore
	chat   ChatStore
	stats  StatsRecorder

	publisher Publisher
	presence  cache.PresenceCache
	notifier  events.Publisher

	// room id -> live count awaiting a presence write
	presenceDirty map[string]int
	presenceBusy  atomic.Bool

	joinSeq uint64

	actions  chan func()
	done     chan struct{}
	inflight atomic.Int64
}

// New creates a coordinator. A Publisher must be set before Run.
func New(
	cfg config.RoomConfig,
	clock clockwork.Clock,
	access AccessVerifier,
	rooms RoomStore,
	chat ChatStore,
	stats StatsRecorder,
) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		clock:         clock,
		registry:      NewRegistry(),
		conns:         make(map[string]*connState),
		access:        access,
		rooms:         rooms,
		chat:          chat,
		stats:         stats,
		notifier:      events.NopPublisher{},
		presenceDirty: make(map[string]int),
		actions:       make(chan func(), 1024),
		done:          make(chan struct{}),
	}
}

// SetPublisher sets the transport used for all outbound events
func (c *Coordinator) SetPublisher(p Publisher) {
	c.publisher = p
}

// SetPresence sets the cache that receives live participant counts
func (c *Coordinator) SetPresence(p cache.PresenceCache) {
	c.presence = p
}

// SetNotifier sets the room lifecycle event feed
func (c *Coordinator) SetNotifier(n events.Publisher) {
	c.notifier = n
}

// Run processes events and timer ticks until ctx is cancelled
func (c *Coordinator) Run(ctx context.Context) {
	ticker := c.clock.NewTicker(c.cfg.TickInterval)
	defer func() {
		ticker.Stop()
		close(c.done)
		log.Info().Int("rooms", c.registry.Len()).Msg("coordinator stopped")
	}()

	log.Info().Dur("tick", c.cfg.TickInterval).Msg("coordinator started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.safely("tick", c.tick)
		case fn := <-c.actions:
			c.safely("action", fn)
		}
	}
}

// Connect registers an authenticated connection
func (c *Coordinator) Connect(id Identity) {
	c.enqueue(func() {
		c.conns[id.ConnID] = &connState{
			Identity: id,
			rooms:    make(map[string]struct{}),
			pending:  make(map[string]uint64),
		}
		c.publisher.Send(id.ConnID, EvConnected, ConnectedPayload{
			SocketID: id.ConnID,
			UserID:   id.UserID,
			Username: id.Username,
		})
		log.Debug().Str("conn_id", id.ConnID).Str("user_id", id.UserID).Msg("connection registered")
	})
}

// Disconnect releases everything held by connID. Safe to call more than once.
func (c *Coordinator) Disconnect(connID string) {
	c.enqueue(func() { c.disconnect(connID) })
}

// Handle queues one client event for processing
func (c *Coordinator) Handle(connID, event string, payload json.RawMessage) {
	c.enqueue(func() { c.dispatch(connID, event, payload) })
}

// Stats reports live room and connection counts
func (c *Coordinator) Stats(ctx context.Context) (RuntimeStats, error) {
	var s RuntimeStats
	err := c.call(ctx, func() {
		s = RuntimeStats{Rooms: c.registry.Len(), Connections: len(c.conns)}
	})
	return s, err
}

// Drain waits for in-flight storage calls to finish or ctx to expire
func (c *Coordinator) Drain(ctx context.Context) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for c.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (c *Coordinator) enqueue(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

func (c *Coordinator) call(ctx context.Context, fn func()) error {
	reply := make(chan struct{})
	select {
	case c.actions <- func() { fn(); close(reply) }:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("what", what).Msg("recovered in coordinator loop")
		}
	}()
	fn()
}

type handlerFunc func(c *Coordinator, conn *connState, raw json.RawMessage) error

func decode[T any](fn func(*Coordinator, *connState, T) error) handlerFunc {
	return func(c *Coordinator, conn *connState, raw json.RawMessage) error {
		var req T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("%w: malformed payload", ErrValidation)
			}
		}
		return fn(c, conn, req)
	}
}

var handlers = map[string]handlerFunc{
	EvCheckRoomAccess:      decode((*Coordinator).checkRoomAccess),
	EvJoinRoom:             decode((*Coordinator).joinRoom),
	EvSendMessage:          decode((*Coordinator).sendMessage),
	EvToggleTimer:          decode((*Coordinator).toggleTimer),
	EvResetTimer:           decode((*Coordinator).resetTimer),
	EvSkipPhase:            decode((*Coordinator).skipPhase),
	EvGetRoomData:          decode((*Coordinator).getRoomData),
	EvUpdateRoomName:       decode((*Coordinator).updateRoomName),
	EvUpdateTimerIntervals: decode((*Coordinator).updateTimerIntervals),
	EvUpdateRoomPassword:   decode((*Coordinator).updateRoomPassword),
	EvKickParticipant:      decode((*Coordinator).kickParticipant),
	EvEndRoom:              decode((*Coordinator).endRoom),
	EvLeaveRoom:            decode((*Coordinator).leaveRoom),
}

func (c *Coordinator) dispatch(connID, event string, raw json.RawMessage) {
	conn, ok := c.conns[connID]
	if !ok {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("event", event).Str("conn_id", connID).Msg("handler panicked")
			c.publisher.Send(connID, EvErrorMessage, TextPayload{Text: "internal error"})
		}
	}()

	h, ok := handlers[event]
	if !ok {
		c.fail(conn, event, fmt.Errorf("%w: %s", ErrUnknownEvent, event))
		return
	}
	if err := h(c, conn, raw); err != nil {
		c.fail(conn, event, err)
	}
}

func (c *Coordinator) fail(conn *connState, event string, err error) {
	if errors.Is(err, ErrNoSession) {
		log.Debug().Str("event", event).Str("conn_id", conn.ConnID).Msg("ignoring event for inactive room")
		return
	}
	log.Debug().Err(err).Str("event", event).Str("conn_id", conn.ConnID).Msg("event rejected")
	c.publisher.Send(conn.ConnID, EvErrorMessage, TextPayload{Text: err.Error()})
}

// async runs work off the loop and queues the closure it returns back onto
// the loop. The continuation must re-check that its connection and room
// still exist.
func (c *Coordinator) async(work func(ctx context.Context) func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Add(-1)
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if next := work(ctx); next != nil {
			c.enqueue(next)
		}
	}()
}

// persist runs a storage write off the loop and only logs failures
func (c *Coordinator) persist(op, roomID string, fn func(ctx context.Context) error) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Add(-1)
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PersistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("op", op).Str("room_id", roomID).Msg("persistence failed")
		}
	}()
}

func (c *Coordinator) notify(t events.Type, roomID string, data map[string]string) {
	ev := events.Event{Type: t, RoomID: roomID, Data: data, At: c.clock.Now()}
	if err := c.notifier.Publish(ev); err != nil {
		log.Warn().Err(err).Str("type", string(t)).Str("room_id", roomID).Msg("failed to publish room event")
	}
}

func (c *Coordinator) markPresence(s *RoomSession) {
	c.presenceDirty[s.ID] = s.Roster.Len()
}

// flushPresence writes pending live counts. Only one flush runs at a time;
// while one is in flight new counts stay dirty for a later tick, so writes
// for a room always land in the order they were made.
func (c *Coordinator) flushPresence() {
	if c.presence == nil || len(c.presenceDirty) == 0 {
		return
	}
	if !c.presenceBusy.CompareAndSwap(false, true) {
		return
	}
	batch := c.presenceDirty
	c.presenceDirty = make(map[string]int)

	c.persist("presence", "", func(ctx context.Context) error {
		defer c.presenceBusy.Store(false)
		var errs []error
		for roomID, n := range batch {
			if err := c.presence.SetLive(ctx, roomID, n); err != nil {
				errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
			}
		}
		return errors.Join(errs...)
	})
}
