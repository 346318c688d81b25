package coordinator

import (
	"context"
	"strconv"

	"studyroom/internal/events"
)

// tick advances every running timer by one second. It iterates a snapshot
// of room ids so rooms closed mid-pass are skipped.
func (c *Coordinator) tick() {
	for _, roomID := range c.registry.IDs() {
		session, ok := c.registry.Get(roomID)
		if !ok {
			continue
		}
		res := session.Tick()
		if !res.Ticked {
			continue
		}

		c.publisher.Publish(roomID, EvTimerUpdate, session.Timer)
		switch res.Completed {
		case PhaseStudy:
			c.creditStudy(session)
			c.publisher.Publish(roomID, EvSystemMessage, TextPayload{Text: "Study session complete. Time for a break!"})
		case PhaseBreak:
			c.publisher.Publish(roomID, EvSystemMessage, TextPayload{Text: "Break is over. Back to studying!"})
		}
		if res.SessionChanged {
			c.publisher.Publish(roomID, EvSessionUpdate, session.Progress)
		}
	}
	c.flushPresence()
}

// creditStudy records a completed study phase for everyone present
func (c *Coordinator) creditStudy(session *RoomSession) {
	minutes := session.StudyMinutes
	for _, p := range session.Roster.Entries() {
		c.persist("recordStudySession", session.ID, func(ctx context.Context) error {
			return c.stats.RecordStudySession(ctx, p.UserID, p.Username, minutes)
		})
	}
	c.notify(events.SessionCompleted, session.ID, map[string]string{
		"session":      strconv.Itoa(session.Progress.Current),
		"minutes":      strconv.Itoa(minutes),
		"participants": strconv.Itoa(session.Roster.Len()),
	})
}
