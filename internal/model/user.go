package model

import "time"

// StudyStats tracks a user's completed study sessions
type StudyStats struct {
	TotalSessions       int        `json:"totalSessions" bson:"totalSessions"`
	TotalMinutesStudied int        `json:"totalMinutesStudied" bson:"totalMinutesStudied"`
	CurrentStreak       int        `json:"currentStreak" bson:"currentStreak"`
	LastStudyDate       *time.Time `json:"lastStudyDate" bson:"lastStudyDate"`
}

// User is a registered account
type User struct {
	ID           string     `json:"id" bson:"_id"`
	Username     string     `json:"username" bson:"username"`
	Email        string     `json:"email" bson:"email"`
	PasswordHash string     `json:"-" bson:"password"`
	Stats        StudyStats `json:"stats" bson:",inline"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
}
