// Package report aggregates raw access log records into report rows.
package report

import (
	"math/big"
	"sort"
	"strconv"

	"github.com/SteelMorgan/access-log-report/internal/domain"
)

// Build groups records by key, computes count and mean response time per group
// and orders the rows by total, then average response time, both descending.
// Exact ties keep the order in which groups were first seen.
func Build(records []domain.RawRecord) []domain.ReportRow {
	var order []string
	byGroup := make(map[string][]float64)

	for _, rec := range records {
		if _, seen := byGroup[rec.Group]; !seen {
			order = append(order, rec.Group)
		}
		byGroup[rec.Group] = append(byGroup[rec.Group], rec.ResponseTime)
	}

	rows := make([]domain.ReportRow, 0, len(order))
	for _, group := range order {
		times := byGroup[group]
		if len(times) == 0 {
			continue
		}
		rows = append(rows, domain.ReportRow{
			Group:           group,
			Total:           len(times),
			AvgResponseTime: Round3(Mean(times)),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].AvgResponseTime > rows[j].AvgResponseTime
	})

	return rows
}

// Mean returns the arithmetic mean of values, computed exactly and then
// rounded once to the nearest float64. Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := new(big.Rat)
	for _, v := range values {
		sum.Add(sum, new(big.Rat).SetFloat64(v))
	}
	sum.Quo(sum, new(big.Rat).SetInt64(int64(len(values))))

	mean, _ := sum.Float64()
	return mean
}

// Round3 rounds x to 3 decimal places.
// Rounding is done on the exact binary value, half to even on exact ties
// (0.0625 -> 0.062, 0.1875 -> 0.188).
func Round3(x float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 3, 64), 64)
	if err != nil {
		return x
	}
	return rounded
}
