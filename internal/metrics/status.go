package metrics

import "sort"

// StatusCount is one row of the status-code histogram.
type StatusCount struct {
	Code  int
	Count int64
}

// ErrorCount is one row of the error histogram.
type ErrorCount struct {
	Kind  ErrorKind
	Count int64
}

// SortedStatusCodes returns status rows ordered by ascending code.
func SortedStatusCodes(codes map[int]int64) []StatusCount {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusCount{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Code < rows[j].Code
	})
	return rows
}

// SortedErrors returns error rows sorted by descending count, then by kind for stability.
func SortedErrors(errs map[ErrorKind]int64) []ErrorCount {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorCount, 0, len(errs))
	for kind, count := range errs {
		rows = append(rows, ErrorCount{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// ServerErrors sums the counts of 5xx status codes.
func ServerErrors(codes map[int]int64) int64 {
	var total int64
	for code, count := range codes {
		if code >= 500 {
			total += count
		}
	}
	return total
}
