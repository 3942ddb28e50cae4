package main

import (
	"fmt"
	"time"
)

const filterDateLayout = "2006-01-02"

// buildReportFilters translates the admin filter state into a WHERE-clause
// conjunction. The sentinel "all" (or an empty value) adds no constraint.
// Date bounds use inclusive whole-day semantics in the configured time zone:
// start_date lower-bounds created_at at 00:00:00 of that day, end_date
// upper-bounds it at 23:59:59.999. Every caller pairs the clause with a
// descending order on created_at so CSV, PDF and the list all see the same
// result set for the same filter state.
func buildReportFilters(filters map[string]any, loc *time.Location) (string, []any) {
	whereClause := ""
	args := make([]any, 0)
	argIndex := 1

	if raw, ok := filters["start_date"].(string); ok && raw != "" {
		if day, err := time.ParseInLocation(filterDateLayout, raw, loc); err == nil {
			whereClause += fmt.Sprintf(" AND created_at >= $%d", argIndex)
			args = append(args, day)
			argIndex++
		}
	}
	if raw, ok := filters["end_date"].(string); ok && raw != "" {
		if day, err := time.ParseInLocation(filterDateLayout, raw, loc); err == nil {
			endOfDay := day.Add(24*time.Hour - time.Millisecond)
			whereClause += fmt.Sprintf(" AND created_at <= $%d", argIndex)
			args = append(args, endOfDay)
			argIndex++
		}
	}
	if category, ok := filters["category"].(string); ok && category != "" && category != "all" {
		whereClause += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, category)
		argIndex++
	}
	if status, ok := filters["status"].(string); ok && status != "" && status != "all" {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	return whereClause, args
}

// filtersFromQuery lifts the filter query parameters into the map shape the
// predicate builder consumes.
func filtersFromQuery(startDate, endDate, category, status string) map[string]any {
	filters := map[string]any{}
	if startDate != "" {
		filters["start_date"] = startDate
	}
	if endDate != "" {
		filters["end_date"] = endDate
	}
	if category != "" {
		filters["category"] = category
	}
	if status != "" {
		filters["status"] = status
	}
	return filters
}
