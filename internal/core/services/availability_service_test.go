package services

import (
	"context"
	"testing"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvailabilityService(t *testing.T) (*AvailabilityService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newTestDB(t)

	svc := NewAvailabilityService(
		repositories.NewAvailabilityRepository(db),
		repositories.NewAppointmentRepository(db),
		repositories.NewUserRepository(db),
		time.UTC,
	)
	return svc, mock
}

func clockWindow(startHour, startMin, endHour, endMin int) models.Availability {
	return models.Availability{
		StartTime: time.Date(2000, 1, 1, startHour, startMin, 0, 0, time.UTC),
		EndTime:   time.Date(2000, 1, 1, endHour, endMin, 0, 0, time.UTC),
		Status:    models.AvailabilityStatusAvailable,
	}
}

func TestExpandSlots_WalksWindowInHalfHourSteps(t *testing.T) {
	windows := []models.Availability{clockWindow(9, 0, 10, 0)}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	require.Len(t, days, HorizonDays)
	assert.Equal(t, "Today", days[0].Label)
	assert.Equal(t, "Tomorrow", days[1].Label)

	for _, day := range days {
		require.Len(t, day.Slots, 2, "day %s", day.Date)
	}

	first := days[0].Slots[0]
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), first.StartTime)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), first.EndTime)
	assert.Equal(t, "09:00 - 09:30", first.Label)
}

func TestExpandSlots_DropsOnlyPastSlots(t *testing.T) {
	windows := []models.Availability{clockWindow(9, 0, 10, 0)}
	// 09:20, today's first slot already started
	now := time.Date(2026, 3, 2, 9, 20, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	require.Len(t, days, HorizonDays)
	require.Len(t, days[0].Slots, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), days[0].Slots[0].StartTime)
	// Later days keep the full window
	assert.Len(t, days[1].Slots, 2)
}

func TestExpandSlots_SkipsSlotsOverlappingAppointments(t *testing.T) {
	windows := []models.Availability{clockWindow(9, 0, 10, 0)}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{{
		StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Status:    models.AppointmentStatusScheduled,
	}}

	days := ExpandSlots(windows, appointments, now, time.UTC)

	require.Len(t, days, HorizonDays)
	require.Len(t, days[0].Slots, 1)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), days[0].Slots[0].StartTime)
}

func TestExpandSlots_OvernightWindowSpillsIntoNextDay(t *testing.T) {
	windows := []models.Availability{clockWindow(22, 0, 1, 0)}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	// HorizonDays projections, plus the spill day past the horizon
	require.Len(t, days, HorizonDays+1)

	// First day only carries its own evening slots
	require.Len(t, days[0].Slots, 4)
	assert.Equal(t, time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC), days[0].Slots[0].StartTime)
	assert.Equal(t, time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC), days[0].Slots[3].StartTime)

	// Middle days carry last night's spill plus their own evening
	require.Len(t, days[1].Slots, 6)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), days[1].Slots[0].StartTime)

	// The last bucket is pure spill from the final projected day
	last := days[len(days)-1]
	require.Len(t, last.Slots, 2)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), last.Slots[0].StartTime)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 30, 0, 0, time.UTC), last.Slots[1].StartTime)
}

func TestExpandSlots_EmitsEmptyBucketsForDeadDays(t *testing.T) {
	windows := []models.Availability{clockWindow(9, 0, 10, 0)}
	// 23:00, today's window is entirely in the past
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	// Today still appears, as an empty bucket rather than a missing day
	require.Len(t, days, HorizonDays)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.NotNil(t, days[0].Slots)
	assert.Empty(t, days[0].Slots)
	assert.Len(t, days[1].Slots, 2)
}

func TestExpandSlots_FullyBookedDayStaysInResponse(t *testing.T) {
	windows := []models.Availability{clockWindow(9, 0, 10, 0)}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	appointments := []models.Appointment{{
		StartTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Status:    models.AppointmentStatusScheduled,
	}}

	days := ExpandSlots(windows, appointments, now, time.UTC)

	require.Len(t, days, HorizonDays)
	assert.Empty(t, days[0].Slots)
	assert.Len(t, days[1].Slots, 2)
}

func TestExpandSlots_DeduplicatesOverlappingWindows(t *testing.T) {
	windows := []models.Availability{
		clockWindow(9, 0, 10, 0),
		clockWindow(9, 0, 11, 0),
	}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	require.Len(t, days, HorizonDays)
	// 09:00-11:00 yields 4 distinct slots; the narrower window adds none
	require.Len(t, days[0].Slots, 4)
	seen := map[string]bool{}
	for _, slot := range days[0].Slots {
		key := slot.StartTime.String()
		assert.False(t, seen[key], "duplicate slot %s", key)
		seen[key] = true
	}
}

func TestExpandSlots_SlotsAreSortedWithinDay(t *testing.T) {
	windows := []models.Availability{
		clockWindow(14, 0, 15, 0),
		clockWindow(9, 0, 10, 0),
	}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	days := ExpandSlots(windows, nil, now, time.UTC)

	require.NotEmpty(t, days)
	slots := days[0].Slots
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].StartTime.Before(slots[i].StartTime))
	}
}

func TestCreateWindow_AnchorsClockTimesToStorableDate(t *testing.T) {
	svc, mock := newAvailabilityService(t)

	mock.ExpectExec("INSERT INTO `availabilities`").
		WillReturnResult(sqlmock.NewResult(1, 1))

	window, err := svc.CreateWindow(context.Background(), 2, &CreateWindowInput{
		StartTime: "09:00",
		EndTime:   "17:30",
	})

	require.NoError(t, err)
	// A bare "15:04" parse lands in year 0, outside MySQL's DATETIME range.
	assert.Equal(t, 2000, window.StartTime.Year())
	assert.Equal(t, 2000, window.EndTime.Year())
	assert.Equal(t, 9, window.StartTime.Hour())
	assert.Equal(t, 0, window.StartTime.Minute())
	assert.Equal(t, 17, window.EndTime.Hour())
	assert.Equal(t, 30, window.EndTime.Minute())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWindow_RejectsMalformedClockTime(t *testing.T) {
	svc, _ := newAvailabilityService(t)

	_, err := svc.CreateWindow(context.Background(), 2, &CreateWindowInput{
		StartTime: "9am",
		EndTime:   "17:00",
	})

	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", at(9, 0), at(9, 30), at(9, 0), at(9, 30), true},
		{"a starts inside b", at(9, 15), at(9, 45), at(9, 0), at(9, 30), true},
		{"a ends inside b", at(8, 45), at(9, 15), at(9, 0), at(9, 30), true},
		{"a contains b", at(8, 0), at(10, 0), at(9, 0), at(9, 30), true},
		{"b contains a", at(9, 10), at(9, 20), at(9, 0), at(9, 30), true},
		{"adjacent before", at(8, 30), at(9, 0), at(9, 0), at(9, 30), false},
		{"adjacent after", at(9, 30), at(10, 0), at(9, 0), at(9, 30), false},
		{"disjoint", at(11, 0), at(11, 30), at(9, 0), at(9, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd))
		})
	}
}
