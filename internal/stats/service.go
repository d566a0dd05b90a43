package stats

import (
	"context"
	"errors"
)

// Counter reports how many records a repository holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type Service struct {
	Templates Counter
	Documents Counter
}

type Summary struct {
	Templates int `json:"templates"`
	Documents int `json:"documents"`
}

func NewService(templates, documents Counter) *Service {
	return &Service{Templates: templates, Documents: documents}
}

// Summary returns the dashboard totals.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s == nil || s.Templates == nil || s.Documents == nil {
		return Summary{}, errors.New("stats service not configured")
	}
	templateCount, err := s.Templates.Count(ctx)
	if err != nil {
		return Summary{}, err
	}
	documentCount, err := s.Documents.Count(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Templates: templateCount, Documents: documentCount}, nil
}
