package scheduling

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/psiagenda/scheduling-engine/internal/timeutil"
)

var (
	ErrSlotAlreadyScheduled = errors.New("slot is already scheduled")
	ErrSlotNotScheduled     = errors.New("slot is not scheduled")
	ErrSlotExpired          = errors.New("slot date is in the past")
	ErrSlotNotFound         = errors.New("no slot found for the given date")
	ErrInvalidSlotTime      = errors.New("invalid slot time")
	ErrNoRemovableSlot      = errors.New("no removable slot matched the given dates")
)

// ScheduleGraceWindow is how far in the past a slot date may lie and still
// be booked. It absorbs clock skew between client and server without
// letting stale slots through.
const ScheduleGraceWindow = time.Hour

// Operating window, in UTC hours. 05:00-23:00 covers the business day and
// 00:00-02:00 picks up the UTC-3 evening hours that roll into the next
// UTC day.
const (
	openingHourUTC    = 5
	closingHourUTC    = 23
	lateWindowEndUTC  = 2
)

// Schedule marks the slot as taken. It fails on a slot that is already
// taken, or whose date lies more than the grace window before now.
func (s *Slot) Schedule(now time.Time) error {
	if !s.Available {
		return ErrSlotAlreadyScheduled
	}
	if s.Date.Before(timeutil.Normalize(now).Add(-ScheduleGraceWindow)) {
		return ErrSlotExpired
	}
	s.Available = false
	return nil
}

// Unschedule frees a taken slot. Freeing a slot that is not held is a
// caller bug and is reported as such.
func (s *Slot) Unschedule() error {
	if s.Available {
		return ErrSlotNotScheduled
	}
	s.Available = true
	return nil
}

// Matches reports whether the slot sits at the given instant, compared in
// normalized form.
func (s *Slot) Matches(t time.Time) bool {
	return timeutil.SameInstant(s.Date, t)
}

// validSlotHour accepts exact-hour instants inside the operating window.
func validSlotHour(t time.Time) bool {
	if t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	h := t.Hour()
	return (h >= openingHourUTC && h <= closingHourUTC) || h <= lateWindowEndUTC
}

// AddAvailabilities creates one open slot per instant. Instants in the
// past, off the hour boundary, or outside the operating window are
// rejected with ErrInvalidSlotTime. An instant that already has a slot is
// skipped silently.
func (p *Psychologist) AddAvailabilities(dates []time.Time, now time.Time) error {
	now = timeutil.Normalize(now)

	for _, d := range dates {
		d = timeutil.Normalize(d)
		if d.Before(now) || !validSlotHour(d) {
			return ErrInvalidSlotTime
		}
	}

	for _, d := range dates {
		d = timeutil.Normalize(d)
		if _, err := p.FindSlot(d); err == nil {
			continue
		}
		p.Slots = append(p.Slots, NewSlot(d))
	}
	return nil
}

// RemoveAvailabilities drops the slots matching the given instants, but
// only those still open; a slot held by an appointment stays. When the
// whole request removes nothing the caller almost certainly passed wrong
// dates, so that is an error rather than a silent no-op.
func (p *Psychologist) RemoveAvailabilities(dates []time.Time) error {
	removed := 0
	kept := p.Slots[:0]

	for _, s := range p.Slots {
		drop := false
		if s.Available {
			for _, d := range dates {
				if s.Matches(d) {
					drop = true
					break
				}
			}
		}
		if drop {
			removed++
			continue
		}
		kept = append(kept, s)
	}

	if removed == 0 {
		return ErrNoRemovableSlot
	}
	p.Slots = kept
	return nil
}

// SlotByID returns the slot with the given identifier, or nil.
func (p *Psychologist) SlotByID(id uuid.UUID) *Slot {
	for _, s := range p.Slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FindSlot returns the slot at the given instant. It is a pure lookup;
// booking the slot is an explicit Schedule call by the caller.
func (p *Psychologist) FindSlot(t time.Time) (*Slot, error) {
	for _, s := range p.Slots {
		if s.Matches(t) {
			return s, nil
		}
	}
	return nil, ErrSlotNotFound
}
