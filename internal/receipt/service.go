package receipt

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/robertomiguez/lastprice-llm/internal/extraction"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Summary is the payload returned for a successful extraction
type Summary struct {
	Success     bool              `json:"success"`
	Timestamp   string            `json:"timestamp"`
	ItemCount   int               `json:"itemCount"`
	TotalAmount float64           `json:"totalAmount"`
	Items       []extraction.Item `json:"items"`
}

// Service runs the extraction pipeline for one request. It holds no
// mutable state, so concurrent requests need no coordination.
type Service struct {
	extractor  extraction.Extractor
	timeSource TimeSource
}

// NewService creates a new Service with the default time source
func NewService(extractor extraction.Extractor) *Service {
	return &Service{
		extractor:  extractor,
		timeSource: &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(extractor extraction.Extractor, timeSource TimeSource) *Service {
	return &Service{
		extractor:  extractor,
		timeSource: timeSource,
	}
}

// Process extracts items from receipt text and aggregates the totals. An
// empty item list is still a success: the model said nothing useful, but
// the system worked.
func (s *Service) Process(ctx context.Context, receiptText string, maxRetries int) (*Summary, error) {
	items, err := s.extractor.Extract(ctx, receiptText, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("extracting items: %w", err)
	}
	if items == nil {
		items = []extraction.Item{}
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	return &Summary{
		Success:     true,
		Timestamp:   s.timeSource.Now().UTC().Format(time.RFC3339),
		ItemCount:   len(items),
		TotalAmount: math.Round(total*100) / 100,
		Items:       items,
	}, nil
}
