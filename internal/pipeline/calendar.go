package pipeline

import (
	"time"

	"github.com/cityzn/cityzn-backend-go/internal/config"
)

// Calendar holds the features derived from a timestamp alone
type Calendar struct {
	Hour              int
	DayOfWeek         int // 0=Monday .. 6=Sunday
	IsWeekend         bool
	IsRushHourMorning bool
	IsRushHourEvening bool
}

// Weekday converts a Go weekday to the 0=Monday convention
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// CalendarFeatures uses the inclusive hour windows, as the training grid does
func CalendarFeatures(t time.Time, morning, evening config.HourWindow) Calendar {
	dow := Weekday(t)
	return Calendar{
		Hour:              t.Hour(),
		DayOfWeek:         dow,
		IsWeekend:         dow >= 5,
		IsRushHourMorning: morning.Contains(t.Hour()),
		IsRushHourEvening: evening.Contains(t.Hour()),
	}
}

// CalendarFeaturesFromSets uses discrete rush hour sets, as the prediction
// path does
func CalendarFeaturesFromSets(t time.Time, morning, evening []int) Calendar {
	dow := Weekday(t)
	return Calendar{
		Hour:              t.Hour(),
		DayOfWeek:         dow,
		IsWeekend:         dow >= 5,
		IsRushHourMorning: containsInt(morning, t.Hour()),
		IsRushHourEvening: containsInt(evening, t.Hour()),
	}
}

func containsInt(set []int, v int) bool {
	for _, x := range set {
		if x == v {
			return true
		}
	}
	return false
}
