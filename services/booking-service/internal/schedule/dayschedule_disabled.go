//go:build !protogen

package schedule

import (
	"context"

	"github.com/medhelp-app/medhelp/services/booking-service/internal/slotgrid"
)

// DayScheduleProvider resolves the rule for one doctor and date in a
// single call. Backed by the directory's gRPC API in protogen builds.
type DayScheduleProvider interface {
	DaySchedule(ctx context.Context, doctorID, date string) (slotgrid.Rule, bool, error)
}

func NewDayScheduleProvider(_ string) (DayScheduleProvider, error) {
	return nil, nil
}
