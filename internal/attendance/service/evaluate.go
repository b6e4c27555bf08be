package service

import (
	"time"

	"fichaje/internal/attendance/models"
	schedulemodels "fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
)

// ToleranceMinutes is the window around a shift boundary within which a punch
// counts as on time. The sweep jobs share the same constant.
const ToleranceMinutes = 15

// Evaluate matches a punch against the day's resolved turns. With no turns
// the punch is off-schedule (NO_SHIFT). Otherwise the nearest boundary wins:
// shift starts for IN punches, shift ends for OUT punches, by smallest
// absolute difference. The signed difference actual - expected classifies the
// punch: within the tolerance is OK, more than the tolerance before is EARLY,
// more than the tolerance after is LATE.
func Evaluate(day schedulemodels.DaySchedule, at time.Time, direction id.RecordType) models.Evaluation {
	if !day.HasWork() {
		return models.Evaluation{Status: models.StatusNoShift}
	}

	actual := id.MinutesOf(at)
	var (
		best     id.TimeOfDay
		bestDiff int
		found    bool
	)
	for _, turn := range day.Turns {
		boundary := turn.Start
		if direction == id.RecordOut {
			boundary = turn.End
		}
		diff := actual.Sub(boundary)
		if !found || abs(diff) < abs(bestDiff) {
			best, bestDiff, found = boundary, diff, true
		}
	}

	ev := models.Evaluation{
		ExpectedAt:  best.At(at),
		DiffMinutes: bestDiff,
	}
	switch {
	case abs(bestDiff) <= ToleranceMinutes:
		ev.Status = models.StatusOK
	case bestDiff < 0:
		ev.Status = models.StatusEarly
	default:
		ev.Status = models.StatusLate
	}
	return ev
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
