package extract

import (
	"strconv"

	"github.com/propdoc-io/propdoc/internal/document"
)

// Summary aggregates unit records into portfolio statistics.
type Summary struct {
	TotalUnits    int     `json:"total_units"`
	OccupiedUnits int     `json:"occupied_units"`
	VacantUnits   int     `json:"vacant_units"`
	OccupancyRate float64 `json:"occupancy_rate"`
	TotalRent     float64 `json:"total_rent"`
	AverageRent   float64 `json:"average_rent"`
	TotalArea     int     `json:"total_area"`
	AverageArea   float64 `json:"average_area"`
}

// Summarize computes summary statistics over the unit records in recs.
// Non-unit records are ignored.
func Summarize(recs []*document.StructuredRecord) Summary {
	var s Summary
	var rentN, areaN int

	for _, rec := range recs {
		if rec.Entity != document.EntityUnit {
			continue
		}
		s.TotalUnits++

		if f := rec.Field("status"); f != nil {
			if f.Value == "occupied" {
				s.OccupiedUnits++
			} else {
				s.VacantUnits++
			}
		}
		if f := rec.Field("rent_amount"); f != nil {
			if v, err := strconv.ParseFloat(f.Value, 64); err == nil {
				s.TotalRent += v
				rentN++
			}
		}
		if f := rec.Field("area_sqft"); f != nil {
			if v, err := strconv.Atoi(f.Value); err == nil {
				s.TotalArea += v
				areaN++
			}
		}
	}

	if s.TotalUnits > 0 {
		s.OccupancyRate = float64(s.OccupiedUnits) / float64(s.TotalUnits) * 100
	}
	if rentN > 0 {
		s.AverageRent = s.TotalRent / float64(rentN)
	}
	if areaN > 0 {
		s.AverageArea = float64(s.TotalArea) / float64(areaN)
	}
	return s
}
