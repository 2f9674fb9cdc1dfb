package reporting

import (
	"context"
	"errors"

	"github.com/joegen/opalvoip-opal/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Service aggregates call detail records. Records are immutable, so every
// summary is recomputed from the repository.
type Service struct {
	repo calls.RecordRepository
}

func NewService(repo calls.RecordRepository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	switch req.Direction {
	case "", calls.DirectionIncoming, calls.DirectionOutgoing:
	default:
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.List(ctx, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{
		Range:       req.Range,
		ByEndReason: map[string]int{},
		ByProtocol:  map[string]int{},
	}
	for _, r := range rows {
		if req.Direction != "" && r.Direction != req.Direction {
			continue
		}
		if req.Protocol != "" && r.Protocol != req.Protocol {
			continue
		}

		out.TotalCalls++
		out.TotalDurationSeconds += r.DurationSeconds
		if r.RecordingFile != "" {
			out.RecordedCalls++
		}
		if r.Direction == calls.DirectionIncoming {
			out.IncomingCalls++
		} else {
			out.OutgoingCalls++
		}
		if r.EndReason != "" {
			out.ByEndReason[r.EndReason]++
		}
		if r.Protocol != "" {
			out.ByProtocol[r.Protocol]++
		}

		switch r.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		case calls.CallStatusRinging, calls.CallStatusInProgress:
			// not counted separately
		}
	}
	if out.CompletedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.CompletedCalls
	}
	return out, nil
}
