package coordinator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"studyroom/internal/events"
	"studyroom/internal/model"
	"studyroom/internal/service"
)

func (c *Coordinator) checkRoomAccess(conn *connState, req roomRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	id := conn.Identity

	c.async(func(ctx context.Context) func() {
		info, err := c.access.Describe(ctx, req.RoomID, id.UserID)
		return func() {
			if _, ok := c.conns[id.ConnID]; !ok {
				return
			}
			switch {
			case err != nil:
				log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to describe room")
				c.publisher.Send(id.ConnID, EvRoomAccessDenied, AccessDeniedPayload{Reason: service.ReasonServerError})
			case info == nil:
				c.publisher.Send(id.ConnID, EvRoomAccessDenied, AccessDeniedPayload{Reason: service.ReasonNotFound})
			default:
				c.publisher.Send(id.ConnID, EvRoomAccessInfo, info)
			}
		}
	})
	return nil
}

func (c *Coordinator) joinRoom(conn *connState, req joinRequest) error {
	if req.RoomID == "" {
		return fmt.Errorf("%w: roomId is required", ErrValidation)
	}
	id := conn.Identity
	c.joinSeq++
	gen := c.joinSeq
	conn.pending[req.RoomID] = gen

	c.async(func(ctx context.Context) func() {
		res, err := c.access.VerifyAccess(ctx, req.RoomID, id.UserID, req.RoomCode)
		var history []*model.ChatMessage
		if err == nil && res.Allowed {
			var herr error
			if history, herr = c.chat.History(ctx, req.RoomID); herr != nil {
				log.Error().Err(herr).Str("room_id", req.RoomID).Msg("failed to load chat history")
			}
		}
		return func() { c.completeJoin(id, gen, req.RoomID, res, err, history) }
	})
	return nil
}

// completeJoin applies an access check. It is dropped when the connection
// is gone, left the room meanwhile, or asked to join again.
func (c *Coordinator) completeJoin(id Identity, gen uint64, roomID string, res *service.AccessResult, err error, history []*model.ChatMessage) {
	conn, ok := c.conns[id.ConnID]
	if !ok || conn.pending[roomID] != gen {
		log.Debug().Str("room_id", roomID).Str("conn_id", id.ConnID).Msg("dropping stale join")
		return
	}
	delete(conn.pending, roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", id.UserID).Msg("access check failed")
	}
	if res == nil || !res.Allowed {
		reason := service.ReasonServerError
		if res != nil && res.Reason != "" {
			reason = res.Reason
		}
		c.publisher.Send(id.ConnID, EvRoomAccessDenied, AccessDeniedPayload{Reason: reason})
		return
	}

	session, created := c.registry.GetOrCreate(res.Room)
	if created {
		log.Info().Str("room_id", roomID).Str("name", session.Name).Msg("room session opened")
		c.notify(events.RoomOpened, roomID, map[string]string{"name": session.Name})
	}

	replaced := session.Roster.Join(Participant{
		ConnID:   id.ConnID,
		UserID:   id.UserID,
		Username: id.Username,
	}, session.CreatorID)

	if replaced != "" && replaced != id.ConnID {
		c.publisher.Unsubscribe(roomID, replaced)
		if old, ok := c.conns[replaced]; ok {
			delete(old.rooms, roomID)
		}
		log.Debug().Str("room_id", roomID).Str("old_conn", replaced).Str("new_conn", id.ConnID).Msg("participant reconnected")
	}

	conn.rooms[roomID] = struct{}{}
	c.publisher.Subscribe(roomID, id.ConnID)

	c.publisher.Send(id.ConnID, EvRoomJoinSuccess, JoinSuccessPayload{
		RoomName:  session.Name,
		RoomID:    roomID,
		IsPrivate: session.Private,
	})
	c.publisher.Send(id.ConnID, EvLoadMessages, chatPayloads(history))

	verb := "joined"
	if replaced != "" {
		verb = "rejoined"
	}
	c.publisher.Publish(roomID, EvSystemMessage, TextPayload{Text: fmt.Sprintf("%s %s the room", id.Username, verb)})
	c.broadcastParticipants(session)
	c.publisher.Send(id.ConnID, EvTimerUpdate, session.Timer)
	c.publisher.Send(id.ConnID, EvSessionUpdate, session.Progress)
	c.markPresence(session)
}

func (c *Coordinator) sendMessage(conn *connState, req messageRequest) error {
	session, err := c.memberSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	clean, err := c.chat.Sanitize(req.Message)
	if err != nil {
		return err
	}

	msg := &model.ChatMessage{
		RoomID:    session.ID,
		SenderID:  conn.UserID,
		Username:  conn.Username,
		Message:   clean,
		CreatedAt: c.clock.Now(),
	}
	c.publisher.Publish(session.ID, EvNewMessage, ChatPayload{
		Username:  msg.Username,
		Message:   msg.Message,
		CreatedAt: msg.CreatedAt,
	})
	c.persist("saveMessage", session.ID, func(ctx context.Context) error {
		return c.chat.Save(ctx, msg)
	})
	return nil
}

func (c *Coordinator) toggleTimer(conn *connState, req roomRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	session.Toggle()
	c.publisher.Publish(session.ID, EvTimerUpdate, session.Timer)
	return nil
}

func (c *Coordinator) resetTimer(conn *connState, req roomRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	session.Reset()
	c.publisher.Publish(session.ID, EvTimerUpdate, session.Timer)
	c.publisher.Publish(session.ID, EvSessionUpdate, session.Progress)
	return nil
}

func (c *Coordinator) skipPhase(conn *connState, req roomRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	changed := session.Skip()
	c.publisher.Publish(session.ID, EvTimerUpdate, session.Timer)
	if changed {
		c.publisher.Publish(session.ID, EvSessionUpdate, session.Progress)
	}
	return nil
}

func (c *Coordinator) getRoomData(conn *connState, req roomRequest) error {
	session, err := c.memberSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	c.publisher.Send(conn.ConnID, EvRoomData, session.Snapshot(conn.UserID))
	return nil
}

func (c *Coordinator) updateRoomName(conn *connState, req renameRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > c.cfg.Limits.MaxNameLength {
		return fmt.Errorf("%w: room name must be 1-%d characters", ErrValidation, c.cfg.Limits.MaxNameLength)
	}

	session.Name = name
	c.publisher.Publish(session.ID, EvRoomNameUpdated, NamePayload{Name: name})
	c.persist("updateName", session.ID, func(ctx context.Context) error {
		return c.rooms.UpdateName(ctx, session.ID, name)
	})
	return nil
}

func (c *Coordinator) updateTimerIntervals(conn *connState, req intervalsRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	limits := c.cfg.Limits
	if !limits.ValidStudy(req.StudyInterval) {
		return fmt.Errorf("%w: study interval must be %d-%d minutes", ErrValidation, limits.MinStudyMinutes, limits.MaxStudyMinutes)
	}
	if !limits.ValidBreak(req.BreakInterval) {
		return fmt.Errorf("%w: break interval must be %d-%d minutes", ErrValidation, limits.MinBreakMinutes, limits.MaxBreakMinutes)
	}

	timerChanged := session.SetIntervals(req.StudyInterval, req.BreakInterval)
	c.publisher.Publish(session.ID, EvTimerIntervalsUpdated, IntervalsPayload{
		StudyInterval: req.StudyInterval,
		BreakInterval: req.BreakInterval,
	})
	if timerChanged {
		c.publisher.Publish(session.ID, EvTimerUpdate, session.Timer)
	}

	roomID, study, brk := session.ID, req.StudyInterval, req.BreakInterval
	c.persist("updateIntervals", roomID, func(ctx context.Context) error {
		return c.rooms.UpdateIntervals(ctx, roomID, study, brk)
	})
	return nil
}

func (c *Coordinator) updateRoomPassword(conn *connState, req passwordRequest) error {
	session, err := c.memberSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	if conn.UserID != session.CreatorID {
		return ErrNotCreator
	}
	if !session.Private {
		return fmt.Errorf("%w: public rooms have no password", ErrValidation)
	}
	code := req.Password
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: password is required", ErrValidation)
	}

	session.Code = code
	c.publisher.Send(conn.ConnID, EvRoomPasswordUpdated, CodePayload{Code: code})
	c.publisher.Publish(session.ID, EvSystemMessage, TextPayload{Text: "The room password was changed"})

	roomID := session.ID
	c.persist("updateCode", roomID, func(ctx context.Context) error {
		return c.rooms.UpdateCode(ctx, roomID, code)
	})
	return nil
}

func (c *Coordinator) kickParticipant(conn *connState, req kickRequest) error {
	session, err := c.adminSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	if req.SocketID == conn.ConnID {
		return fmt.Errorf("%w: you cannot kick yourself", ErrValidation)
	}
	target, ok := session.Roster.Get(req.SocketID)
	if !ok {
		return fmt.Errorf("%w: participant is not in this room", ErrValidation)
	}

	// the target is told before it leaves the group so it never sees its
	// own removal broadcast
	c.publisher.Send(target.ConnID, EvYouWereKicked, RoomRefPayload{RoomID: session.ID})
	c.publisher.Unsubscribe(session.ID, target.ConnID)
	session.Roster.Remove(target.ConnID)
	if tc, ok := c.conns[target.ConnID]; ok {
		delete(tc.rooms, session.ID)
	}

	c.publisher.Publish(session.ID, EvParticipantKicked, KickedPayload{Username: target.Username, SocketID: target.ConnID})
	c.publisher.Publish(session.ID, EvSystemMessage, TextPayload{Text: fmt.Sprintf("%s was removed from the room", target.Username)})
	c.broadcastParticipants(session)
	c.markPresence(session)

	log.Info().Str("room_id", session.ID).Str("user_id", target.UserID).Str("by", conn.UserID).Msg("participant kicked")
	c.notify(events.ParticipantKick, session.ID, map[string]string{"userId": target.UserID, "by": conn.UserID})
	return nil
}

func (c *Coordinator) endRoom(conn *connState, req roomRequest) error {
	session, err := c.memberSession(conn, req.RoomID)
	if err != nil {
		return err
	}
	if conn.UserID != session.CreatorID {
		return ErrNotCreator
	}

	c.publisher.Publish(session.ID, EvRoomEnded, RoomRefPayload{RoomID: session.ID})
	for _, p := range session.Roster.Entries() {
		c.publisher.Unsubscribe(session.ID, p.ConnID)
		if pc, ok := c.conns[p.ConnID]; ok {
			delete(pc.rooms, session.ID)
		}
	}

	log.Info().Str("room_id", session.ID).Str("by", conn.UserID).Msg("room ended by creator")
	c.closeSession(session, events.RoomEnded)
	return nil
}

func (c *Coordinator) leaveRoom(conn *connState, req roomRequest) error {
	_, joining := conn.pending[req.RoomID]
	delete(conn.pending, req.RoomID)

	session, ok := c.registry.Get(req.RoomID)
	if !ok {
		if joining {
			return nil
		}
		return ErrNoSession
	}
	c.removeParticipant(session, conn.ConnID)
	return nil
}

func (c *Coordinator) disconnect(connID string) {
	conn, ok := c.conns[connID]
	if !ok {
		return
	}
	delete(c.conns, connID)
	clear(conn.pending)

	for roomID := range conn.rooms {
		if session, ok := c.registry.Get(roomID); ok {
			c.removeParticipant(session, connID)
		}
	}
	log.Debug().Str("conn_id", connID).Str("user_id", conn.UserID).Msg("connection released")
}

// removeParticipant drops connID from the room, promoting a new admin or
// closing the room as needed. A connID that is not in the roster is a no-op.
func (c *Coordinator) removeParticipant(session *RoomSession, connID string) {
	p, wasAdmin, ok := session.Roster.Remove(connID)
	if !ok {
		return
	}
	c.publisher.Unsubscribe(session.ID, connID)
	if pc, ok := c.conns[connID]; ok {
		delete(pc.rooms, session.ID)
	}

	if session.Roster.Len() == 0 {
		c.closeSession(session, events.RoomClosed)
		return
	}

	c.publisher.Publish(session.ID, EvSystemMessage, TextPayload{Text: fmt.Sprintf("%s left the room", p.Username)})
	if wasAdmin {
		admin, _ := session.Roster.Admin()
		c.publisher.Publish(session.ID, EvSystemMessage, TextPayload{Text: fmt.Sprintf("%s is now the room admin", admin.Username)})
	}
	c.broadcastParticipants(session)
	c.markPresence(session)
}

// closeSession evicts the live room and marks it ended in storage
func (c *Coordinator) closeSession(session *RoomSession, reason events.Type) {
	c.registry.Remove(session.ID)
	c.presenceDirty[session.ID] = 0

	roomID := session.ID
	c.persist("endRoom", roomID, func(ctx context.Context) error {
		return c.rooms.SetStatus(ctx, roomID, model.RoomEnded)
	})

	log.Info().Str("room_id", roomID).Str("reason", string(reason)).Msg("room session closed")
	c.notify(reason, roomID, nil)
}

func (c *Coordinator) broadcastParticipants(session *RoomSession) {
	c.publisher.Publish(session.ID, EvParticipantsUpdate, ParticipantsPayload{
		Participants: session.Roster.Entries(),
		AdminID:      session.Roster.AdminID(),
	})
}

// memberSession returns the live room if conn is in its roster
func (c *Coordinator) memberSession(conn *connState, roomID string) (*RoomSession, error) {
	session, ok := c.registry.Get(roomID)
	if !ok {
		return nil, ErrNoSession
	}
	if session.Roster.IndexOfConn(conn.ConnID) < 0 {
		return nil, ErrNotInRoom
	}
	return session, nil
}

// adminSession returns the live room if conn is its admin
func (c *Coordinator) adminSession(conn *connState, roomID string) (*RoomSession, error) {
	session, ok := c.registry.Get(roomID)
	if !ok {
		return nil, ErrNoSession
	}
	if !session.Roster.IsAdmin(conn.ConnID) {
		return nil, ErrNotAdmin
	}
	return session, nil
}

func chatPayloads(history []*model.ChatMessage) []ChatPayload {
	out := make([]ChatPayload, 0, len(history))
	for _, m := range history {
		out = append(out, ChatPayload{Username: m.Username, Message: m.Message, CreatedAt: m.CreatedAt})
	}
	return out
}
