//go:build protogen

package schedule

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/medhelp-app/medhelp/libs/grpcx"
	schedulev1 "github.com/medhelp-app/medhelp/protos/gen/schedule/v1"
	"github.com/medhelp-app/medhelp/services/booking-service/internal/slotgrid"
)

// DayScheduleProvider resolves the rule for one doctor and date in a
// single call. Backed by the directory's gRPC API in protogen builds.
type DayScheduleProvider interface {
	DaySchedule(ctx context.Context, doctorID, date string) (slotgrid.Rule, bool, error)
}

type grpcProvider struct {
	client schedulev1.ScheduleServiceClient
}

func NewDayScheduleProvider(addr string) (DayScheduleProvider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: schedulev1.NewScheduleServiceClient(conn)}, nil
}

func (p *grpcProvider) DaySchedule(ctx context.Context, doctorID, date string) (slotgrid.Rule, bool, error) {
	resp, err := p.client.GetDaySchedule(ctx, &schedulev1.DayScheduleRequest{
		DoctorId: doctorID,
		Date:     date,
	})
	if err != nil {
		// The directory answers NotFound for unknown doctors; surface the
		// same sentinel the HTTP provider uses so callers map it to 404.
		if status.Code(err) == codes.NotFound {
			return slotgrid.Rule{}, false, ErrDoctorNotFound
		}
		return slotgrid.Rule{}, false, err
	}
	if !resp.GetHasRule() {
		return slotgrid.Rule{}, false, nil
	}
	return slotgrid.Rule{
		Weekday: resp.GetWeekday(),
		Start:   resp.GetStartTime(),
		End:     resp.GetEndTime(),
	}, true, nil
}
