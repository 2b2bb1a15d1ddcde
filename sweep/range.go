package sweep

// This file contains the time-domain axis ranges a sweep grid is
// built from.

import "fmt"

// TimeRange is one axis of the sweep grid: start inclusive, end
// exclusive, stepped by increment. All values are in seconds.
type TimeRange struct {
	Start float64
	End   float64
	Step  float64
}

// Validate reports why a range would never terminate or never
// produce a point.
func (r TimeRange) Validate() error {
	if r.Step == 0 {
		return fmt.Errorf("increment must not be zero")
	}
	if r.End == r.Start {
		return fmt.Errorf("end %g equals start %g, no points to visit", r.End, r.Start)
	}
	if (r.End > r.Start) != (r.Step > 0) {
		return fmt.Errorf("increment %g does not advance from %g toward %g", r.Step, r.Start, r.End)
	}
	return nil
}

// Values expands the range into its points. Every point is computed
// from its index, so accumulated floating point drift cannot change
// the grid between runs.
func (r TimeRange) Values() []float64 {
	var vals []float64
	if r.Step > 0 {
		for i := 0; ; i++ {
			v := r.Start + float64(i)*r.Step
			if v >= r.End {
				break
			}
			vals = append(vals, v)
		}
	} else {
		for i := 0; ; i++ {
			v := r.Start + float64(i)*r.Step
			if v <= r.End {
				break
			}
			vals = append(vals, v)
		}
	}
	return vals
}
