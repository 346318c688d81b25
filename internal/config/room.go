package config

import "time"

// RoomLimits bounds what clients may configure on a room
type RoomLimits struct {
	// MinStudyMinutes and MaxStudyMinutes bound the study interval
	MinStudyMinutes int `yaml:"minStudyMinutes" json:"minStudyMinutes"`
	MaxStudyMinutes int `yaml:"maxStudyMinutes" json:"maxStudyMinutes"`

	// MinBreakMinutes and MaxBreakMinutes bound the break interval
	MinBreakMinutes int `yaml:"minBreakMinutes" json:"minBreakMinutes"`
	MaxBreakMinutes int `yaml:"maxBreakMinutes" json:"maxBreakMinutes"`

	// MaxTotalSessions caps the per-room session target
	MaxTotalSessions int `yaml:"maxTotalSessions" json:"maxTotalSessions"`

	// MaxNameLength caps room names
	MaxNameLength int `yaml:"maxNameLength" json:"maxNameLength"`
}

// RoomConfig holds the coordinator's runtime settings
type RoomConfig struct {
	Limits RoomLimits `yaml:"limits" json:"limits"`

	// HistoryLimit is how many chat messages a joiner receives
	HistoryLimit int `yaml:"historyLimit" json:"historyLimit"`

	// TickInterval is the period of the global timer tick
	TickInterval time.Duration `yaml:"tickInterval" json:"tickInterval"`

	// PersistTimeout bounds every fire-and-forget storage call
	PersistTimeout time.Duration `yaml:"persistTimeout" json:"persistTimeout"`
}

// DefaultRoomConfig returns the room settings used when nothing is configured
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Limits: RoomLimits{
			MinStudyMinutes:  1,
			MaxStudyMinutes:  120,
			MinBreakMinutes:  1,
			MaxBreakMinutes:  30,
			MaxTotalSessions: 12,
			MaxNameLength:    50,
		},
		HistoryLimit:   50,
		TickInterval:   time.Second,
		PersistTimeout: 5 * time.Second,
	}
}

// ValidStudy reports whether minutes is an allowed study interval
func (l RoomLimits) ValidStudy(minutes int) bool {
	return minutes >= l.MinStudyMinutes && minutes <= l.MaxStudyMinutes
}

// ValidBreak reports whether minutes is an allowed break interval
func (l RoomLimits) ValidBreak(minutes int) bool {
	return minutes >= l.MinBreakMinutes && minutes <= l.MaxBreakMinutes
}
