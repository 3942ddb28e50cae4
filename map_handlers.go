package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MapGeoPoint is the marker coordinate pair. Markers are only built for
// reports with a structured location, so both components are always set.
type MapGeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// MapMarker is one plottable report, with the popup payload pre-built so
// clients render it without re-deriving labels.
type MapMarker struct {
	ID          string      `json:"id"`
	Position    MapGeoPoint `json:"position"`
	Color       string      `json:"color"`
	Status      string      `json:"status"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Timestamp   string      `json:"timestamp"`
	Submitter   string      `json:"submitter,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
}

var statusMarkerColors = map[string]string{
	"pendente":   "#eab308",
	"em_analise": "#3b82f6",
	"aprovada":   "#14b8a6",
	"resolvida":  "#22c55e",
	"rejeitada":  "#ef4444",
}

const neutralMarkerColor = "#6b7280"

func markerColorFor(status string) string {
	if color, ok := statusMarkerColors[status]; ok {
		return color
	}
	return neutralMarkerColor
}

// buildMapMarkers drops reports without a plottable location instead of
// guessing coordinates for them.
func buildMapMarkers(reports []Report, loc *time.Location) []MapMarker {
	markers := make([]MapMarker, 0, len(reports))
	for _, report := range reports {
		if !report.HasStructuredLocation() {
			continue
		}
		marker := MapMarker{
			ID: report.ID,
			Position: MapGeoPoint{
				Latitude:  report.Location.Latitude,
				Longitude: report.Location.Longitude,
			},
			Color:       markerColorFor(report.EffectiveStatus()),
			Status:      report.EffectiveStatus(),
			Category:    report.Category,
			Description: report.Description,
			Timestamp:   formatTimestamp(report.CreatedAt, loc),
		}
		if report.Identified() {
			marker.Submitter = userLabel(report)
		}
		if len(report.ImageURLs) > 0 {
			marker.ImageURL = report.ImageURLs[0]
		}
		markers = append(markers, marker)
	}
	return markers
}

// adminMapReportsHandler serves the same markers as the public endpoint
// plus the tile layer settings and the status legend, so the dashboard map
// needs a single round trip.
func (a *App) adminMapReportsHandler(c *gin.Context) {
	reports, err := a.listMapReports(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"markers":         buildMapMarkers(reports, a.location),
		"tileUrl":         mapTileURL,
		"tileAttribution": mapTileAttribution,
		"statusColors":    statusMarkerColors,
		"allowedStatuses": reportStatuses,
	})
}
