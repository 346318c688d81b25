package coordinator

type Phase string

const (
	PhaseStudy Phase = "study"
	PhaseBreak Phase = "break"
)

// TimerState is broadcast as timerUpdate
type TimerState struct {
	Phase    Phase `json:"phase"`
	TimeLeft int   `json:"timeLeft"` // seconds, never negative
	Running  bool  `json:"running"`
}

// SessionProgress is broadcast as sessionUpdate
type SessionProgress struct {
	Current int `json:"currentSession"` // 1-based, never above Total
	Total   int `json:"totalSessions"`
}

// Toggle flips running without touching the phase
func (s *RoomSession) Toggle() {
	s.Timer.Running = !s.Timer.Running
}

// Reset returns to a stopped, full-length study phase of session 1
func (s *RoomSession) Reset() {
	s.Timer = TimerState{Phase: PhaseStudy, TimeLeft: s.StudyMinutes * 60}
	s.Progress.Current = 1
}

// Skip forces the other phase and stops the timer. It reports whether the
// session index moved.
func (s *RoomSession) Skip() (sessionChanged bool) {
	return s.flip()
}

// TickResult describes what one tick did to a running timer
type TickResult struct {
	Ticked         bool
	Completed      Phase // phase that just ran out, "" if none
	SessionChanged bool
}

// Tick advances a running timer by one second. Reaching zero stops the timer
// and flips the phase the same way Skip does.
func (s *RoomSession) Tick() TickResult {
	if !s.Timer.Running {
		return TickResult{}
	}

	if s.Timer.TimeLeft > 0 {
		s.Timer.TimeLeft--
	}
	res := TickResult{Ticked: true}
	if s.Timer.TimeLeft == 0 {
		res.Completed = s.Timer.Phase
		res.SessionChanged = s.flip()
	}
	return res
}

func (s *RoomSession) flip() (sessionChanged bool) {
	if s.Timer.Phase == PhaseStudy {
		s.Timer.Phase = PhaseBreak
		s.Timer.TimeLeft = s.BreakMinutes * 60
	} else {
		s.Timer.Phase = PhaseStudy
		s.Timer.TimeLeft = s.StudyMinutes * 60
		if s.Progress.Current < s.Progress.Total {
			s.Progress.Current++
			sessionChanged = true
		}
	}
	s.Timer.Running = false
	return sessionChanged
}

// SetIntervals changes phase lengths. A stopped timer is rewound to the new
// length of its current phase; a running one finishes its current countdown.
func (s *RoomSession) SetIntervals(studyMinutes, breakMinutes int) (timerChanged bool) {
	s.StudyMinutes = studyMinutes
	s.BreakMinutes = breakMinutes
	if s.Timer.Running {
		return false
	}
	if s.Timer.Phase == PhaseStudy {
		s.Timer.TimeLeft = studyMinutes * 60
	} else {
		s.Timer.TimeLeft = breakMinutes * 60
	}
	return true
}
