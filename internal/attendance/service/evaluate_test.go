package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fichaje/internal/attendance/models"
	schedulemodels "fichaje/internal/schedule/models"
	id "fichaje/pkg/domain"
	"fichaje/pkg/testutil"
)

func workDay(date time.Time, turns ...schedulemodels.Turn) schedulemodels.DaySchedule {
	return schedulemodels.DaySchedule{
		Date:    id.DateOf(date),
		Weekday: id.WeekdayOf(date),
		Turns:   turns,
	}
}

func turn(start, end string) schedulemodels.Turn {
	return schedulemodels.Turn{Start: id.MustTimeOfDay(start), End: id.MustTimeOfDay(end)}
}

func TestEvaluateClassification(t *testing.T) {
	date := testutil.MustTime("2026-03-10T00:00:00Z")
	day := workDay(date, turn("09:00", "17:00"))

	at := func(clock string) time.Time {
		return id.MustTimeOfDay(clock).At(date)
	}

	tests := []struct {
		name      string
		punch     time.Time
		direction id.RecordType
		status    models.EvaluationStatus
		diff      int
	}{
		{"on the dot", at("09:00"), id.RecordIn, models.StatusOK, 0},
		{"15 minutes late is still OK", at("09:15"), id.RecordIn, models.StatusOK, 15},
		{"16 minutes late is LATE", at("09:16"), id.RecordIn, models.StatusLate, 16},
		{"15 minutes early is still OK", at("08:45"), id.RecordIn, models.StatusOK, -15},
		{"16 minutes early is EARLY", at("08:44"), id.RecordIn, models.StatusEarly, -16},
		{"out against the end boundary", at("17:10"), id.RecordOut, models.StatusOK, 10},
		{"out well past the end is LATE", at("17:31"), id.RecordOut, models.StatusLate, 31},
		{"out long before the end is EARLY", at("16:00"), id.RecordOut, models.StatusEarly, -60},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := Evaluate(day, tc.punch, tc.direction)
			assert.Equal(t, tc.status, ev.Status)
			assert.Equal(t, tc.diff, ev.DiffMinutes)
		})
	}
}

func TestEvaluateNearestBoundary(t *testing.T) {
	date := testutil.MustTime("2026-03-10T00:00:00Z")
	day := workDay(date, turn("09:00", "13:00"), turn("15:00", "19:00"))

	// 14:20 is 80 minutes past the first end and 40 before the second start;
	// an IN matches the second turn's start.
	ev := Evaluate(day, id.MustTimeOfDay("14:20").At(date), id.RecordIn)
	assert.Equal(t, models.StatusEarly, ev.Status)
	assert.Equal(t, -40, ev.DiffMinutes)
	assert.Equal(t, id.MustTimeOfDay("15:00").At(date), ev.ExpectedAt)

	// An OUT at the same instant is closest to the first turn's end.
	ev = Evaluate(day, id.MustTimeOfDay("14:20").At(date), id.RecordOut)
	assert.Equal(t, models.StatusLate, ev.Status)
	assert.Equal(t, 80, ev.DiffMinutes)
	assert.Equal(t, id.MustTimeOfDay("13:00").At(date), ev.ExpectedAt)
}

func TestEvaluateNoShift(t *testing.T) {
	date := testutil.MustTime("2026-03-10T00:00:00Z")

	t.Run("empty day", func(t *testing.T) {
		ev := Evaluate(workDay(date), id.MustTimeOfDay("09:00").At(date), id.RecordIn)
		assert.Equal(t, models.StatusNoShift, ev.Status)
	})

	t.Run("vacation day has no expectations", func(t *testing.T) {
		day := workDay(date, turn("09:00", "17:00"))
		day.IsVacation = true
		day.Turns = nil
		ev := Evaluate(day, id.MustTimeOfDay("09:00").At(date), id.RecordIn)
		assert.Equal(t, models.StatusNoShift, ev.Status)
	})
}
