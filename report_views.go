package main

import (
	"fmt"
	"time"
)

// ReportListRow is the table row the admin list renders. It is a pure
// projection of one Report; no store state leaks through it.
type ReportListRow struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Category       string   `json:"category"`
	Status         string   `json:"status"`
	StatusBadge    string   `json:"statusBadge"`
	Description    string   `json:"description"`
	Identification string   `json:"identification"`
	UserLabel      string   `json:"userLabel"`
	ImageURLs      []string `json:"imageUrls"`
	HasImages      bool     `json:"hasImages"`
}

var statusBadges = map[string]string{
	"pendente":   "yellow",
	"em_analise": "blue",
	"aprovada":   "teal",
	"resolvida":  "green",
	"rejeitada":  "red",
}

const neutralBadge = "gray"

func statusBadgeFor(status string) string {
	if badge, ok := statusBadges[status]; ok {
		return badge
	}
	return neutralBadge
}

const displayTimestampLayout = "02/01/2006 15:04:05"

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Data inválida"
	}
	return t.In(loc).Format(displayTimestampLayout)
}

// truncateWithEllipsis cuts at rune boundaries so multi-byte text never
// splits mid-character.
func truncateWithEllipsis(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}

func identificationLabel(r Report) string {
	if r.Identified() {
		return "Identificada"
	}
	return "Anônima"
}

func userLabel(r Report) string {
	if !r.Identified() {
		return "N/A"
	}
	return fmt.Sprintf("%s (%s)", r.UserInfo.Name, r.UserInfo.Email)
}

func buildReportListRow(r Report, loc *time.Location) ReportListRow {
	imageURLs := r.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	return ReportListRow{
		ID:             r.ID,
		Timestamp:      formatTimestamp(r.CreatedAt, loc),
		Category:       r.Category,
		Status:         r.EffectiveStatus(),
		StatusBadge:    statusBadgeFor(r.EffectiveStatus()),
		Description:    truncateWithEllipsis(r.Description, listDescriptionLimit),
		Identification: identificationLabel(r),
		UserLabel:      userLabel(r),
		ImageURLs:      imageURLs,
		HasImages:      len(imageURLs) > 0,
	}
}

func buildReportListRows(reports []Report, loc *time.Location) []ReportListRow {
	rows := make([]ReportListRow, 0, len(reports))
	for _, report := range reports {
		rows = append(rows, buildReportListRow(report, loc))
	}
	return rows
}
