package models

import "time"

// Difficulty levels a question can carry.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is a prompt published by the lecturer for authors to answer.
// Questions are created once and never deleted; only the active flag toggles.
type Question struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Language   string    `gorm:"size:32;not null" json:"language"`
	Difficulty string    `gorm:"size:16;not null;default:medium" json:"difficulty"`
	TimeLimit  int       `gorm:"not null;default:30" json:"time_limit"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
