package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"mediconnect/internal/adapters/persistence/models"
	"mediconnect/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Availability errors
var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrDoctorNotVerified = errors.New("doctor is not verified")
	ErrNoAvailability    = errors.New("doctor has no availability windows")
	ErrZeroLengthWindow  = errors.New("availability window must have non-zero duration")
	ErrWindowNotFound    = errors.New("availability window not found")
	ErrNotWindowOwner    = errors.New("availability window belongs to another doctor")
)

// Slot generation parameters
const (
	SlotDuration = 30 * time.Minute
	HorizonDays  = 4
)

// AvailabilityService expands recurring availability windows into concrete
// bookable slots. Pure read + compute; it never writes appointment state.
type AvailabilityService struct {
	availabilityRepo *repositories.AvailabilityRepository
	appointmentRepo  *repositories.AppointmentRepository
	userRepo         repositories.UserRepository
	loc              *time.Location
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	availabilityRepo *repositories.AvailabilityRepository,
	appointmentRepo *repositories.AppointmentRepository,
	userRepo repositories.UserRepository,
	loc *time.Location,
) *AvailabilityService {
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		userRepo:         userRepo,
		loc:              loc,
	}
}

// Slot is one bookable 30-minute interval
type Slot struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Label     string    `json:"label"`
	Display   string    `json:"display"`
}

// DaySlots groups slots by calendar day in the clinic time zone
type DaySlots struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Slots []Slot `json:"slots"`
}

// GetAvailableSlots returns bookable slots for a doctor over the rolling
// horizon, excluding past slots and slots overlapping SCHEDULED
// appointments.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, doctorID uint, now time.Time) ([]DaySlots, error) {
	doctor, err := s.userRepo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if !doctor.IsVerified || !doctor.IsActive {
		return nil, ErrDoctorNotFound
	}

	windows, err := s.availabilityRepo.GetAvailableByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, ErrNoAvailability
	}

	// Overnight projections from the last horizon day can spill one day past
	// it, so read appointments for one extra day.
	horizonEnd := now.In(s.loc).AddDate(0, 0, HorizonDays+1)
	appointments, err := s.appointmentRepo.GetScheduledByDoctorBetween(ctx, doctorID, now, horizonEnd)
	if err != nil {
		return nil, err
	}

	return ExpandSlots(windows, appointments, now, s.loc), nil
}

// ExpandSlots projects each window's time-of-day onto the next HorizonDays
// calendar days and walks the projected interval in SlotDuration steps.
// Overnight windows anchor their end to the following date, so slots past
// midnight land in the next day's bucket. Every horizon day is emitted even
// when nothing in it is bookable, so a fully booked day reads as an empty
// bucket rather than a missing one; the day past the horizon appears only
// when an overnight window spills into it.
func ExpandSlots(windows []models.Availability, appointments []models.Appointment, now time.Time, loc *time.Location) []DaySlots {
	localNow := now.In(loc)
	buckets := make(map[string][]Slot)
	seen := make(map[string]bool)

	for day := 0; day < HorizonDays; day++ {
		date := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, day)
		if buckets[date.Format("2006-01-02")] == nil {
			buckets[date.Format("2006-01-02")] = []Slot{}
		}

		for _, window := range windows {
			start, end := projectWindow(window, date, loc)

			for slotStart := start; !slotStart.Add(SlotDuration).After(end); slotStart = slotStart.Add(SlotDuration) {
				slotEnd := slotStart.Add(SlotDuration)

				// Past slots are dropped, not the whole window.
				if slotStart.Before(now) {
					continue
				}

				if overlapsAny(slotStart, slotEnd, appointments) {
					continue
				}

				// De-duplicate identical [start,end) pairs emitted by
				// overlapping windows.
				key := slotStart.Format(time.RFC3339) + "|" + slotEnd.Format(time.RFC3339)
				if seen[key] {
					continue
				}
				seen[key] = true

				dayKey := slotStart.In(loc).Format("2006-01-02")
				buckets[dayKey] = append(buckets[dayKey], Slot{
					StartTime: slotStart,
					EndTime:   slotEnd,
					Label:     slotStart.In(loc).Format("15:04") + " - " + slotEnd.In(loc).Format("15:04"),
					Display:   slotStart.In(loc).Format("Mon, 02 Jan 2006 15:04"),
				})
			}
		}
	}

	dayKeys := make([]string, 0, len(buckets))
	for key := range buckets {
		dayKeys = append(dayKeys, key)
	}
	sort.Strings(dayKeys)

	result := make([]DaySlots, 0, len(dayKeys))
	for _, key := range dayKeys {
		slots := buckets[key]
		sort.Slice(slots, func(i, j int) bool {
			return slots[i].StartTime.Before(slots[j].StartTime)
		})

		date, _ := time.ParseInLocation("2006-01-02", key, loc)
		result = append(result, DaySlots{
			Date:  key,
			Label: dayLabel(date, localNow),
			Slots: slots,
		})
	}

	return result
}

// projectWindow anchors a window's time-of-day onto a calendar date. An
// overnight window's end anchors to the following date.
func projectWindow(window models.Availability, date time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(),
		window.StartTime.Hour(), window.StartTime.Minute(), 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(),
		window.EndTime.Hour(), window.EndTime.Minute(), 0, 0, loc)

	if window.IsOvernight() {
		end = end.AddDate(0, 0, 1)
	}

	return start, end
}

// Overlaps is the three-way overlap test: a starts inside b, a ends inside
// b, or a fully contains b. Intervals are half-open [start, end).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	// a starts inside b
	if !aStart.Before(bStart) && aStart.Before(bEnd) {
		return true
	}
	// a ends inside b
	if aEnd.After(bStart) && !aEnd.After(bEnd) {
		return true
	}
	// a fully contains b
	if !aStart.After(bStart) && !aEnd.Before(bEnd) {
		return true
	}
	return false
}

func overlapsAny(start, end time.Time, appointments []models.Appointment) bool {
	for _, appointment := range appointments {
		if Overlaps(start, end, appointment.StartTime, appointment.EndTime) {
			return true
		}
	}
	return false
}

func dayLabel(date, localNow time.Time) string {
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, localNow.Location())
	switch int(date.Sub(today).Hours() / 24) {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return date.Format("Monday, 02 January")
	}
}

// ============================================================
// Doctor window management
// ============================================================

// CreateWindowInput represents a new recurring window request. Times are
// clock times ("15:04") in the clinic time zone; an end before the start
// means the window wraps past midnight.
type CreateWindowInput struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CreateWindow creates a recurring availability window for a doctor
func (s *AvailabilityService) CreateWindow(ctx context.Context, doctorID uint, input *CreateWindowInput) (*models.Availability, error) {
	start, err := parseClockTime(input.StartTime, s.loc)
	if err != nil {
		return nil, errors.New("invalid start time, use HH:MM")
	}
	end, err := parseClockTime(input.EndTime, s.loc)
	if err != nil {
		return nil, errors.New("invalid end time, use HH:MM")
	}

	// After overnight normalization a window with equal clock times would
	// be zero length.
	if start.Hour() == end.Hour() && start.Minute() == end.Minute() {
		return nil, ErrZeroLengthWindow
	}

	window := &models.Availability{
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   end,
		Status:    models.AvailabilityStatusAvailable,
	}

	if err := s.availabilityRepo.Create(ctx, window); err != nil {
		return nil, err
	}

	log.Printf("✅ Availability window created: doctor=%d %s-%s", doctorID, input.StartTime, input.EndTime)
	return window, nil
}

// parseClockTime parses "HH:MM" onto a fixed anchor date. time.Parse alone
// yields year 0, which MySQL's DATETIME range cannot store; only the clock
// part of the template is ever read back.
func parseClockTime(value string, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation("15:04", value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(2000, 1, 1, parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
}

// ListWindows returns all windows owned by a doctor
func (s *AvailabilityService) ListWindows(ctx context.Context, doctorID uint) ([]models.Availability, error) {
	return s.availabilityRepo.GetByDoctor(ctx, doctorID)
}

// DeleteWindow deletes a window after an ownership check
func (s *AvailabilityService) DeleteWindow(ctx context.Context, doctorID, windowID uint) error {
	window, err := s.availabilityRepo.GetByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWindowNotFound
		}
		return err
	}
	if window.DoctorID != doctorID {
		return ErrNotWindowOwner
	}

	return s.availabilityRepo.Delete(ctx, windowID)
}

// SetWindowStatus toggles a window between AVAILABLE and DISABLED
func (s *AvailabilityService) SetWindowStatus(ctx context.Context, doctorID, windowID uint, status string) error {
	if status != models.AvailabilityStatusAvailable && status != models.AvailabilityStatusDisabled {
		return errors.New("invalid availability status")
	}

	window, err := s.availabilityRepo.GetByID(ctx, windowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrWindowNotFound
		}
		return err
	}
	if window.DoctorID != doctorID {
		return ErrNotWindowOwner
	}

	return s.availabilityRepo.UpdateStatus(ctx, windowID, status)
}
