package models

import "time"

// LevelStats aggregates the outcomes of one level for a subject.
// Completed never goes back to false once set.
type LevelStats struct {
	Level     int            `json:"level"`
	Completed bool           `json:"completed"`
	FailCount int            `json:"fail_count"`
	Attempts  []LevelAttempt `json:"attempts"`
}

// LevelAttempt is a single append-only gameplay outcome
type LevelAttempt struct {
	Completed        bool      `json:"completed"`
	HelpUsed         bool      `json:"help_used"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	Timestamp        time.Time `json:"timestamp"`
}

// TotalTimeSpent sums the time spent over all attempts
func (s LevelStats) TotalTimeSpent() int {
	total := 0
	for _, a := range s.Attempts {
		total += a.TimeSpentSeconds
	}
	return total
}
