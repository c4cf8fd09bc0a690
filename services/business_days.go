package services

import "time"

const (
	ManualSettlementDays      = 5
	FlutterwaveSettlementDays = 3
)

// EstimatedCompletionDate moves forward businessDays working days from from,
// skipping Saturdays and Sundays. The result keeps from's clock time.
func EstimatedCompletionDate(from time.Time, businessDays int) time.Time {
	if businessDays < 1 {
		businessDays = 1
	}
	d := from
	for added := 0; added < businessDays; {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			added++
		}
	}
	return d
}
