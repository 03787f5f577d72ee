package availability

import (
	"context"
	"fmt"
)

// IntervalSource lists the occupied windows within a date range.
type IntervalSource interface {
	ListIntervals(ctx context.Context, r DateRange) ([]Interval, error)
}

// SourceFunc adapts a function to IntervalSource.
type SourceFunc func(ctx context.Context, r DateRange) ([]Interval, error)

// ListIntervals calls f.
func (f SourceFunc) ListIntervals(ctx context.Context, r DateRange) ([]Interval, error) {
	return f(ctx, r)
}

type mergedSource struct {
	sources []IntervalSource
}

// MergeSources returns a source that concatenates the intervals of every
// source in order. Intervals are neither merged nor deduplicated. A failure in
// any source fails the whole listing.
func MergeSources(sources ...IntervalSource) IntervalSource {
	filtered := make([]IntervalSource, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return mergedSource{sources: filtered}
}

func (m mergedSource) ListIntervals(ctx context.Context, r DateRange) ([]Interval, error) {
	var merged []Interval
	for i, source := range m.sources {
		intervals, err := source.ListIntervals(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("availability: interval source %d: %w", i, err)
		}
		merged = append(merged, intervals...)
	}
	return merged, nil
}
