//go:build protogen

package schedule

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	schedulev1 "github.com/medhelp-app/medhelp/protos/gen/schedule/v1"
)

type stubScheduleClient struct {
	resp *schedulev1.DayScheduleResponse
	err  error
}

func (c *stubScheduleClient) GetDaySchedule(ctx context.Context, req *schedulev1.DayScheduleRequest, opts ...grpc.CallOption) (*schedulev1.DayScheduleResponse, error) {
	return c.resp, c.err
}

func TestGRPCDayScheduleUnknownDoctor(t *testing.T) {
	p := &grpcProvider{client: &stubScheduleClient{
		err: status.Error(codes.NotFound, "doctor not found"),
	}}

	_, _, err := p.DaySchedule(context.Background(), "d-missing", "2026-09-01")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
}

func TestGRPCDaySchedulePassesThroughOtherErrors(t *testing.T) {
	p := &grpcProvider{client: &stubScheduleClient{
		err: status.Error(codes.Unavailable, "directory down"),
	}}

	_, _, err := p.DaySchedule(context.Background(), "d1", "2026-09-01")
	if err == nil || errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want non-NotFound transport error", err)
	}
}

func TestGRPCDayScheduleNoRule(t *testing.T) {
	p := &grpcProvider{client: &stubScheduleClient{
		resp: &schedulev1.DayScheduleResponse{DoctorId: "d1", Weekday: "Sunday"},
	}}

	_, ok, err := p.DaySchedule(context.Background(), "d1", "2026-09-06")
	if err != nil {
		t.Fatalf("DaySchedule: %v", err)
	}
	if ok {
		t.Fatal("expected no rule for a day off")
	}
}
