package sales

import "errors"

// DataPoint is one month of sales figures, as plotted by the front-end chart.
// PRE: Month is non-empty.
// INVARIANT: Sales and Revenue are non-negative.
type DataPoint struct {
	ID      int64   `json:"-"`
	Month   string  `json:"month"`
	Sales   float64 `json:"sales"`
	Revenue float64 `json:"revenue"`
}

// Validate checks the data point's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (d DataPoint) Validate() error {
	if d.Month == "" {
		return errors.New("sales month cannot be empty")
	}
	if d.Sales < 0 {
		return errors.New("sales cannot be negative")
	}
	if d.Revenue < 0 {
		return errors.New("revenue cannot be negative")
	}
	return nil
}

// Samples returns the first half-year of figures used to seed an empty table.
func Samples() []DataPoint {
	months := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
	points := make([]DataPoint, 0, len(months))
	for i, m := range months {
		points = append(points, DataPoint{
			Month:   m,
			Sales:   float64(100 + 20*i),
			Revenue: float64(1500 + 300*i),
		})
	}
	return points
}
