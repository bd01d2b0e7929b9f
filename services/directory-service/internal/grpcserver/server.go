//go:build protogen

package grpcserver

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	schedulev1 "github.com/medhelp-app/medhelp/protos/gen/schedule/v1"
	"github.com/medhelp-app/medhelp/services/directory-service/internal/storage"
)

type server struct {
	schedulev1.UnimplementedScheduleServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	schedulev1.RegisterScheduleServiceServer(grpcServer, &server{repo: repo})
}

// GetDaySchedule resolves the doctor's rule for the date's weekday.
// Duplicate weekday rows cannot occur here (primary key), so "first
// match" and "only match" coincide.
func (s *server) GetDaySchedule(ctx context.Context, req *schedulev1.DayScheduleRequest) (*schedulev1.DayScheduleResponse, error) {
	if req.GetDoctorId() == "" || req.GetDate() == "" {
		return nil, status.Error(codes.InvalidArgument, "doctor_id and date are required")
	}
	date, err := time.Parse("2006-01-02", req.GetDate())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}

	if _, err := s.repo.GetByID(ctx, req.GetDoctorId()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "doctor not found")
		}
		return nil, status.Error(codes.Internal, "doctor lookup failed")
	}

	rules, err := s.repo.ListRules(ctx, req.GetDoctorId())
	if err != nil {
		return nil, status.Error(codes.Internal, "rules lookup failed")
	}

	weekday := date.Weekday().String()
	resp := &schedulev1.DayScheduleResponse{
		DoctorId: req.GetDoctorId(),
		Weekday:  weekday,
	}
	for _, r := range rules {
		if r.Weekday == weekday {
			resp.HasRule = true
			resp.StartTime = r.StartTime
			resp.EndTime = r.EndTime
			break
		}
	}
	return resp, nil
}
