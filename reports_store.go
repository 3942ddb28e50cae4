package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ReportLocation is the structured form of a report's location. Reports may
// instead carry a free-text location, or none at all.
type ReportLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Report struct {
	ID           string
	Description  string
	Category     string
	Location     *ReportLocation
	LocationText string
	ImageURLs    []string
	Status       string
	ReportType   string
	UserInfo     UserInfo
	CreatedAt    time.Time
}

// MarshalJSON renders location as an object, a raw string, or null, matching
// the stored document shape consumers expect.
func (r Report) MarshalJSON() ([]byte, error) {
	var location any
	switch {
	case r.Location != nil:
		location = r.Location
	case r.LocationText != "":
		location = r.LocationText
	}
	return json.Marshal(struct {
		ID          string   `json:"id"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Location    any      `json:"location"`
		ImageURLs   []string `json:"imageUrls"`
		Status      string   `json:"status"`
		ReportType  string   `json:"reportType"`
		UserInfo    UserInfo `json:"userInfo"`
		CreatedAt   string   `json:"createdAt"`
	}{
		ID:          r.ID,
		Description: r.Description,
		Category:    r.Category,
		Location:    location,
		ImageURLs:   r.ImageURLs,
		Status:      r.Status,
		ReportType:  r.ReportType,
		UserInfo:    r.UserInfo,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// EffectiveStatus maps an absent status to "pendente"; every consumer reads
// status through this.
func (r Report) EffectiveStatus() string {
	if r.Status == "" {
		return "pendente"
	}
	return r.Status
}

// HasStructuredLocation reports whether the location is a coordinate pair
// with both components finite.
func (r Report) HasStructuredLocation() bool {
	if r.Location == nil {
		return false
	}
	lat, lng := r.Location.Latitude, r.Location.Longitude
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return true
}

// Identified is true when the submitter left a name or an email.
func (r Report) Identified() bool {
	return r.UserInfo.Name != "" || r.UserInfo.Email != ""
}

const reportColumns = `id, description, category, lat, lng, location_text, image_urls, status, report_type, user_name, user_email, created_at`

func scanReport(scanner interface{ Scan(...any) error }) (Report, error) {
	var r Report
	var lat, lng sql.NullFloat64
	var locationText sql.NullString
	var imageURLsRaw []byte
	if err := scanner.Scan(
		&r.ID, &r.Description, &r.Category, &lat, &lng, &locationText,
		&imageURLsRaw, &r.Status, &r.ReportType, &r.UserInfo.Name, &r.UserInfo.Email, &r.CreatedAt,
	); err != nil {
		return Report{}, err
	}
	if lat.Valid && lng.Valid {
		r.Location = &ReportLocation{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if locationText.Valid {
		r.LocationText = locationText.String
	}
	r.ImageURLs = []string{}
	if len(imageURLsRaw) > 0 {
		if err := json.Unmarshal(imageURLsRaw, &r.ImageURLs); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}

func (a *App) storeCreateReport(ctx context.Context, report Report) (*Report, error) {
	report.ID = uuid.NewString()
	if report.Status == "" {
		report.Status = "pendente"
	}
	if report.ImageURLs == nil {
		report.ImageURLs = []string{}
	}
	imageURLs, err := json.Marshal(report.ImageURLs)
	if err != nil {
		return nil, err
	}

	var lat, lng any
	if report.Location != nil {
		lat, lng = report.Location.Latitude, report.Location.Longitude
	}
	var locationText any
	if report.LocationText != "" {
		locationText = report.LocationText
	}

	if report.CreatedAt.IsZero() {
		err = a.db.QueryRowContext(ctx, `
			INSERT INTO denuncias (id, description, category, lat, lng, location_text, image_urls, status, report_type, user_name, user_email)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at
		`, report.ID, report.Description, report.Category, lat, lng, locationText,
			imageURLs, report.Status, report.ReportType, report.UserInfo.Name, report.UserInfo.Email,
		).Scan(&report.CreatedAt)
	} else {
		_, err = a.db.ExecContext(ctx, `
			INSERT INTO denuncias (id, description, category, lat, lng, location_text, image_urls, status, report_type, user_name, user_email, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, report.ID, report.Description, report.Category, lat, lng, locationText,
			imageURLs, report.Status, report.ReportType, report.UserInfo.Name, report.UserInfo.Email, report.CreatedAt)
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (a *App) storeGetReportByID(ctx context.Context, reportID string) (*Report, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM denuncias WHERE id = $1`, reportID)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// storeListReports fetches the entire filtered result set, unbounded by page
// size. Both export paths run over this.
func (a *App) storeListReports(ctx context.Context, filters map[string]any) ([]Report, error) {
	query := `SELECT ` + reportColumns + ` FROM denuncias WHERE 1=1`
	whereClause, args := buildReportFilters(filters, a.location)
	query += whereClause
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// storeListMapReports returns only reports carrying a structured location.
func (a *App) storeListMapReports(ctx context.Context) ([]Report, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM denuncias
		WHERE lat IS NOT NULL AND lng IS NOT NULL
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (a *App) storeCountReports(ctx context.Context) (int, error) {
	var count int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM denuncias`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// storeUpdateReportStatus writes exactly the status field of one report.
// Status is the only field ever mutated after creation.
func (a *App) storeUpdateReportStatus(ctx context.Context, reportID, status string) (*Report, error) {
	if !containsString(reportStatuses, status) {
		return nil, &apiError{Status: http.StatusBadRequest, Code: "invalid_status", Message: "Status inválido"}
	}

	result, err := a.db.ExecContext(ctx, `
		UPDATE denuncias SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, reportID)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &apiError{Status: http.StatusNotFound, Code: "report_not_found", Message: "Denúncia não encontrada"}
	}
	return a.storeGetReportByID(ctx, reportID)
}
