package service

import (
	"time"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

const dayLayout = "2006-01-02"

// nextStreak returns the streak counters after activity on now's UTC day.
func nextStreak(p model.Pet, now time.Time) (current, longest int, day string) {
	today := now.UTC()
	day = today.Format(dayLayout)
	current = p.StreakCurrent

	switch p.StreakLastDate {
	case day:
		if current == 0 {
			current = 1
		}
	case today.AddDate(0, 0, -1).Format(dayLayout):
		current++
	default:
		current = 1
	}

	longest = max(p.StreakLongest, current)
	return current, longest, day
}
