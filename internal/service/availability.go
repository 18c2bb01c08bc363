package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// DateLayout is the calendar date format used by availability and the
// staff booking list.
const DateLayout = "2006-01-02"

// MaxPartySize bounds the party size accepted from guests.
const MaxPartySize = 50

// AvailabilityRequest asks for the open slots of one service date.
type AvailabilityRequest struct {
	TenantRef string
	PartySize int
	Date      string // YYYY-MM-DD in the tenant's zone
}

// Availability returns the bookable slots of the requested date plus
// alternatives from the following days.  Every returned slot lies inside
// the tenant's business hours; an empty list is a valid answer.
func (s *Service) Availability(ctx context.Context, req AvailabilityRequest) (model.Availability, error) {
	if req.PartySize <= 0 || req.PartySize > MaxPartySize {
		return model.Availability{}, fmt.Errorf("%w: party_size must be between 1 and %d", ErrValidation, MaxPartySize)
	}
	t, _, err := s.Tenant(ctx, req.TenantRef)
	if err != nil {
		return model.Availability{}, err
	}
	if !t.IsActive() {
		return model.Availability{}, ErrTenantNotFound
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(req.Date), t.Location())
	if err != nil {
		return model.Availability{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	out := model.Availability{
		TenantID:      t.ID,
		Date:          day.Format(DateLayout),
		PartySize:     req.PartySize,
		Slots:         []model.TimeSlot{},
		Alternatives:  []model.TimeSlot{},
		DepositPolicy: t.Deposit,
	}
	tables, err := s.tables.ListActive(ctx, t.ID)
	if err != nil {
		return model.Availability{}, fmt.Errorf("list tables: %w", err)
	}
	if !seats(tables, req.PartySize) {
		return out, nil
	}

	now := s.now()
	slots, err := s.daySlots(ctx, t, tables, req.PartySize, day, now)
	if err != nil {
		return model.Availability{}, err
	}
	out.Slots = model.ClampSlots(t, slots)

	if len(out.Slots) < s.cfg.MaxAlternatives {
		for i := 1; i <= s.cfg.AlternativeDays && len(out.Alternatives) < s.cfg.MaxAlternatives; i++ {
			alt, err := s.daySlots(ctx, t, tables, req.PartySize, day.AddDate(0, 0, i), now)
			if err != nil {
				return model.Availability{}, err
			}
			for _, slot := range model.ClampSlots(t, alt) {
				if len(out.Alternatives) == s.cfg.MaxAlternatives {
					break
				}
				out.Alternatives = append(out.Alternatives, slot)
			}
		}
	}
	return out, nil
}

// daySlots computes the candidate slots of the window opening on day.
func (s *Service) daySlots(ctx context.Context, t model.Tenant, tables []model.Table, party int, day, now time.Time) ([]model.TimeSlot, error) {
	opens, closes, ok := t.Window(day.Year(), day.Month(), day.Day())
	if !ok {
		return nil, nil
	}
	occ, err := s.bookings.Occupancy(ctx, t.ID, opens.UTC(), closes.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("occupancy: %w", err)
	}
	dur := t.BookingDuration()
	earliest := now.Add(s.cfg.MinLeadTime)
	revenue := int64(party) * t.AvgSpendCents()

	var slots []model.TimeSlot
	for start := opens; !start.Add(dur).After(closes); start = start.Add(t.SlotInterval()) {
		if start.Before(earliest) {
			continue
		}
		free := model.FreeTables(tables, occ, party, start, start.Add(dur))
		if len(free) == 0 {
			continue
		}
		slots = append(slots, model.TimeSlot{
			Time:                  start,
			AvailableTables:       len(free),
			Optimal:               free[0].Capacity-party <= 1,
			ProjectedRevenueCents: revenue,
		})
	}
	return slots, nil
}

// seats reports whether any active table can seat the party at all.
func seats(tables []model.Table, party int) bool {
	for _, t := range tables {
		if t.IsActive && t.Capacity >= party {
			return true
		}
	}
	return false
}

// freeCandidates returns the ids of the tables free for [start, end),
// best fit first.
func (s *Service) freeCandidates(ctx context.Context, t model.Tenant, tables []model.Table, party int, start, end, now time.Time) ([]uint64, error) {
	occ, err := s.bookings.Occupancy(ctx, t.ID, start.UTC(), end.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("occupancy: %w", err)
	}
	free := model.FreeTables(tables, occ, party, start, end)
	ids := make([]uint64, 0, len(free))
	for _, f := range free {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
