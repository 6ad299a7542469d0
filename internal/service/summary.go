package service

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"

	"github.com/arkanova/solar-monitor/internal/domain"
	"github.com/arkanova/solar-monitor/internal/repository"
)

type SensorLister interface {
	ListByPanel(ctx context.Context, panelID int64) ([]domain.Sensor, error)
}

type MeasurementLister interface {
	ListBySensor(ctx context.Context, sensorID int64, rng repository.TimeRange) ([]domain.Measurement, error)
}

// TypeSummary aggregates the numeric measurements of one sensor type on a
// panel. Timestamp is the newest sample in epoch milliseconds.
type TypeSummary struct {
	Average   float64 `json:"average"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Samples   int     `json:"samples"`
	Timestamp int64   `json:"timestamp"`
}

// PanelSummaryService rolls a panel's measurements up per sensor type name.
type PanelSummaryService struct {
	panels       repository.PanelFinder
	sensors      SensorLister
	measurements MeasurementLister
}

func NewPanelSummaryService(panels repository.PanelFinder, sensors SensorLister, measurements MeasurementLister) *PanelSummaryService {
	return &PanelSummaryService{panels: panels, sensors: sensors, measurements: measurements}
}

// Summarize only covers types with numeric payloads; a type with no samples
// in rng is omitted.
func (s *PanelSummaryService) Summarize(ctx context.Context, panelID int64, rng repository.TimeRange) (map[string]TypeSummary, error) {
	if _, err := s.panels.FindByID(ctx, panelID); err != nil {
		return nil, fmt.Errorf("summarize panel %d: %w", panelID, err)
	}
	sensors, err := s.sensors.ListByPanel(ctx, panelID)
	if err != nil {
		return nil, fmt.Errorf("summarize panel %d: %w", panelID, err)
	}

	byType := map[string][]aggregator.Point{}
	for _, sensor := range sensors {
		if !sensor.Type.Numeric() {
			continue
		}
		measurements, err := s.measurements.ListBySensor(ctx, sensor.ID, rng)
		if err != nil {
			return nil, fmt.Errorf("summarize panel %d: sensor %d: %w", panelID, sensor.ID, err)
		}
		for _, m := range measurements {
			if v, ok := m.Value(); ok {
				byType[sensor.Type.Name] = append(byType[sensor.Type.Name], aggregator.Point{Value: v, Timestamp: m.RecordedAt})
			}
		}
	}

	out := make(map[string]TypeSummary, len(byType))
	for name, points := range byType {
		out[name] = summarize(points)
	}
	return out, nil
}

// summarize expects at least one point.
func summarize(points []aggregator.Point) TypeSummary {
	sum := TypeSummary{
		Average: aggregator.Average(points),
		Min:     points[0].Value,
		Max:     points[0].Value,
		Samples: len(points),
	}
	newest := points[0].Timestamp
	for _, p := range points[1:] {
		sum.Min = min(sum.Min, p.Value)
		sum.Max = max(sum.Max, p.Value)
		if p.Timestamp.After(newest) {
			newest = p.Timestamp
		}
	}
	sum.Timestamp = newest.UnixMilli()
	return sum
}
