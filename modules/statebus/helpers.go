package statebus

// CalculateDropRate returns the drop rate as a fraction (0.0 to 1.0).
// Returns 0.0 if nothing has been sent or dropped.
func CalculateDropRate(stats BusStats) float64 {
	return rate(stats.TotalSent, stats.TotalDropped)
}

// CalculateSubscriberDropRate returns the drop rate for one subscriber.
// Returns 0.0 if the subscriber is unknown.
func CalculateSubscriberDropRate(stats BusStats, subscriberID string) float64 {
	sub, exists := stats.Subscribers[subscriberID]
	if !exists {
		return 0.0
	}
	return rate(sub.Sent, sub.Dropped)
}

func rate(sent, dropped uint64) float64 {
	total := sent + dropped
	if total == 0 {
		return 0.0
	}
	return float64(dropped) / float64(total)
}
