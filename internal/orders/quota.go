package orders

import "time"

// DayWindow returns the window daily quotas are accumulated over: local
// midnight of now's day up to now. The window is passed around explicitly
// so quota code never reads the wall clock itself.
func DayWindow(now time.Time) (since, until time.Time) {
	since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return since, now
}

// AccumulateQuota sums ordered quantities per asset across the given
// orders. Callers pass only the buyer's PENDING/SUCCESS orders from
// today's window; FAILED orders never count against the quota.
func AccumulateQuota(history []Order) map[string]int {
	totals := make(map[string]int)
	for _, o := range history {
		for _, l := range o.Lines {
			totals[l.AssetName] += l.Quantity
		}
	}
	return totals
}
