// Package report summarizes the angle log for the dashboard.
package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"posturemonitor/internal/angle"
	"posturemonitor/internal/models"
)

// RangeTotal aggregates every row of one angle range.
type RangeTotal struct {
	Range     string  `json:"range"`
	Rows      int     `json:"rows"`
	Frequency int     `json:"frequency"`
	Duration  int     `json:"duration"`
	Share     float64 `json:"share"`
	start     int
}

// SideTotal aggregates every row of one side.
type SideTotal struct {
	Side     models.Side `json:"side"`
	Rows     int         `json:"rows"`
	Duration int         `json:"duration"`
}

// Summary describes a whole log.
type Summary struct {
	Rows          int          `json:"rows"`
	TotalDuration int          `json:"total_duration"`
	Ranges        []RangeTotal `json:"ranges"`
	Sides         []SideTotal  `json:"sides"`
	AngleMean     float64      `json:"angle_mean"`
	AngleStdDev   float64      `json:"angle_stddev"`
	AngleMin      float64      `json:"angle_min"`
	AngleMax      float64      `json:"angle_max"`
}

// Summarize aggregates rows. Angle statistics weigh each row by its
// frequency so they reflect time spent rather than row count.
func Summarize(rows []models.LogRow) Summary {
	s := Summary{Rows: len(rows)}

	byRange := make(map[string]*RangeTotal)
	sides := make([]SideTotal, len(models.Sides))
	for i, side := range models.Sides {
		sides[i].Side = side
	}

	angles := make([]float64, 0, len(rows))
	weights := make([]float64, 0, len(rows))

	for _, row := range rows {
		s.TotalDuration += row.TotalDuration

		rt, ok := byRange[row.AngleRange]
		if !ok {
			start, _, err := angle.ParseBucket(row.AngleRange)
			if err != nil {
				start = math.MaxInt
			}
			rt = &RangeTotal{Range: row.AngleRange, start: start}
			byRange[row.AngleRange] = rt
		}
		rt.Rows++
		rt.Frequency += row.Frequency
		rt.Duration += row.TotalDuration

		if row.Side.Valid() {
			sides[row.Side].Rows++
			sides[row.Side].Duration += row.TotalDuration
		}

		angles = append(angles, float64(row.HipAngle))
		weights = append(weights, float64(max(row.Frequency, 1)))
	}

	for _, rt := range byRange {
		if s.TotalDuration > 0 {
			rt.Share = float64(rt.Duration) / float64(s.TotalDuration)
		}
		s.Ranges = append(s.Ranges, *rt)
	}
	sort.Slice(s.Ranges, func(i, j int) bool {
		if s.Ranges[i].start != s.Ranges[j].start {
			return s.Ranges[i].start < s.Ranges[j].start
		}
		return s.Ranges[i].Range < s.Ranges[j].Range
	})
	s.Sides = sides

	if len(angles) > 0 {
		mean, std := stat.MeanStdDev(angles, weights)
		s.AngleMean = mean
		if !math.IsNaN(std) && !math.IsInf(std, 0) {
			s.AngleStdDev = std
		}
		s.AngleMin = floats.Min(angles)
		s.AngleMax = floats.Max(angles)
	}

	return s
}
