package fleet

import (
	"encoding/json"
	"math"
)

// Counts is the fleet breakdown shown on the overview cards.
type Counts struct {
	Total       int `json:"total"`
	Running     int `json:"running"`
	Idle        int `json:"idle"`
	Maintenance int `json:"maintenance"` // maintenance and error combined
}

// Stats is the set of derived aggregates, recomputed on every read.
type Stats struct {
	Counts
	AveragePerformance float64 `json:"averagePerformance"`
	RoundedAverage     int     `json:"roundedAverage"`
}

// MarshalJSON encodes an undefined average as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	var avg *float64
	if !math.IsNaN(s.AveragePerformance) {
		v := s.AveragePerformance
		avg = &v
	}
	return json.Marshal(struct {
		Counts
		AveragePerformance *float64 `json:"averagePerformance"`
		RoundedAverage     int      `json:"roundedAverage"`
	}{s.Counts, avg, s.RoundedAverage})
}

// CountByStatus tallies machines for the overview cards.
func CountByStatus(machines []Machine) Counts {
	c := Counts{Total: len(machines)}
	for _, m := range machines {
		switch {
		case m.Status == StatusRunning:
			c.Running++
		case m.Status == StatusIdle:
			c.Idle++
		case m.Status.NeedsAttention():
			c.Maintenance++
		}
	}
	return c
}

// AveragePerformance is the arithmetic mean of performance. It is NaN for
// an empty fleet.
func AveragePerformance(machines []Machine) float64 {
	var sum float64
	for _, m := range machines {
		sum += m.Performance
	}
	return sum / float64(len(machines))
}

// RoundedAverage is the average as displayed, rounded half away from zero.
// An empty fleet displays as 0.
func RoundedAverage(machines []Machine) int {
	avg := AveragePerformance(machines)
	if math.IsNaN(avg) {
		return 0
	}
	return int(math.Round(avg))
}

// ComputeStats derives all aggregates from a snapshot.
func ComputeStats(machines []Machine) Stats {
	return Stats{
		Counts:             CountByStatus(machines),
		AveragePerformance: AveragePerformance(machines),
		RoundedAverage:     RoundedAverage(machines),
	}
}

// Performance bands used for the bar colors.
const (
	BandGood = "good"
	BandFair = "fair"
	BandPoor = "poor"
)

// PerformanceBand classifies a performance percentage.
func PerformanceBand(p float64) string {
	switch {
	case p > 80:
		return BandGood
	case p > 60:
		return BandFair
	default:
		return BandPoor
	}
}
