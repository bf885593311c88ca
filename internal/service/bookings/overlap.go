package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

// DefaultOverlapScanWindow caps how many neighbouring bookings a check reads.
const DefaultOverlapScanWindow = 20

// OverlapChecker decides whether a candidate interval collides with a
// SCHEDULED booking. Storage already narrows candidates by both bounds, so
// the window only matters when more than window bookings intersect the
// candidate, and any one of those is a conflict.
type OverlapChecker struct {
	window int
}

// NewOverlapChecker returns a checker reading at most window rows; zero or
// negative means unbounded.
func NewOverlapChecker(window int) OverlapChecker {
	if window < 0 {
		window = 0
	}
	return OverlapChecker{window: window}
}

// FindConflict returns the earliest SCHEDULED booking overlapping
// [start, end), ignoring excludeID.
func (c OverlapChecker) FindConflict(ctx context.Context, tx store.CalendarTx, start, end time.Time, excludeID uuid.UUID) (domain.Booking, bool, error) {
	rows, err := tx.ListScheduledNeighbors(ctx, start, end, excludeID, c.window)
	if err != nil {
		return domain.Booking{}, false, err
	}
	for _, b := range rows {
		if b.ID == excludeID && excludeID != uuid.Nil {
			continue
		}
		if domain.Overlaps(start, end, b.StartsAt, domain.EndOf(b.StartsAt, b.DurationMinutes)) {
			return b, true, nil
		}
	}
	return domain.Booking{}, false, nil
}
