package slots

// Aggregate drops locations without slots and keeps the rest in the order they were scanned.
func Aggregate(results []LocationResult) []LocationResult {
	aggregated := make([]LocationResult, 0, len(results))
	for _, result := range results {
		if result.Empty() {
			continue
		}
		aggregated = append(aggregated, result)
	}
	return aggregated
}

// Total counts the slots across all results.
func Total(results []LocationResult) int {
	total := 0
	for _, result := range results {
		total += len(result.Slots)
	}
	return total
}
