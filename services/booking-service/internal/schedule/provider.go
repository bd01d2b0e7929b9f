// Package schedule is the booking side's client for the directory
// service, which owns doctors and their weekly availability rules.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medhelp-app/medhelp/services/booking-service/internal/slotgrid"
)

// ErrDoctorNotFound distinguishes "no such doctor" from the directory
// being unreachable; the latter is a dependency fault, not a 404.
var ErrDoctorNotFound = errors.New("doctor not found")

type DoctorInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ConsultationFee string `json:"consultation_fee"`
	Status          string `json:"status"`
}

// Provider reads doctor records and availability rules.
type Provider interface {
	Doctor(ctx context.Context, doctorID string) (DoctorInfo, error)
	Rules(ctx context.Context, doctorID string) ([]slotgrid.Rule, error)
}

// HTTPProvider talks to the directory service's internal HTTP API.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (p *HTTPProvider) Doctor(ctx context.Context, doctorID string) (DoctorInfo, error) {
	var info DoctorInfo
	err := p.getJSON(ctx, "/api/v1/doctors/get?id="+url.QueryEscape(doctorID), &info)
	if err != nil {
		return DoctorInfo{}, err
	}
	return info, nil
}

func (p *HTTPProvider) Rules(ctx context.Context, doctorID string) ([]slotgrid.Rule, error) {
	var resp struct {
		DoctorID string `json:"doctor_id"`
		Rules    []struct {
			Weekday   string `json:"weekday"`
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
		} `json:"rules"`
	}
	if err := p.getJSON(ctx, "/api/v1/doctors/availability?doctor_id="+url.QueryEscape(doctorID), &resp); err != nil {
		return nil, err
	}
	rules := make([]slotgrid.Rule, 0, len(resp.Rules))
	for _, r := range resp.Rules {
		rules = append(rules, slotgrid.Rule{Weekday: r.Weekday, Start: r.StartTime, End: r.EndTime})
	}
	return rules, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return ErrDoctorNotFound
	default:
		return fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
}
