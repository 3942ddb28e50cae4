package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// ReportPageRequest asks for one page of the admin report list. An empty
// AfterToken means the first page; otherwise the page starts strictly after
// the referenced document.
type ReportPageRequest struct {
	AfterToken string
}

// ReportPage is one fixed-size page ordered by created_at descending,
// bounded by opaque tokens. TotalCount is filled on the first page only and
// is display-level information, not a correctness input.
type ReportPage struct {
	Reports    []Report
	TotalCount int
	PageSize   int
	HasNext    bool
	FirstToken string
	LastToken  string
}

const pageTokenLayout = time.RFC3339Nano

// Page-boundary tokens are opaque to callers; only the store encodes and
// decodes them. Swapping the underlying store only touches these three
// functions.

func encodePageToken(createdAt time.Time, id string) string {
	raw := fmt.Sprintf("%s|%s", createdAt.UTC().Format(pageTokenLayout), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed page token")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed page token")
	}
	createdAt, err := time.Parse(pageTokenLayout, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed page token")
	}
	return createdAt, parts[1], nil
}

func tokenForFirst(reports []Report) string {
	if len(reports) == 0 {
		return ""
	}
	return encodePageToken(reports[0].CreatedAt, reports[0].ID)
}

func tokenForLast(reports []Report) string {
	if len(reports) == 0 {
		return ""
	}
	last := reports[len(reports)-1]
	return encodePageToken(last.CreatedAt, last.ID)
}

// storeListReportsPage runs the keyset page query. Backward paging is not
// implemented: the store only pages forward, and "previous" in the admin UI
// returns to the first page. A correct implementation would keep a stack of
// page-start tokens client-side.
func (a *App) storeListReportsPage(ctx context.Context, req ReportPageRequest) (*ReportPage, error) {
	query := `SELECT ` + reportColumns + ` FROM denuncias`
	args := []any{}

	if req.AfterToken != "" {
		createdAt, id, err := decodePageToken(req.AfterToken)
		if err != nil {
			return nil, &apiError{Status: 400, Code: "invalid_page_token", Message: "Token de paginação inválido"}
		}
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, createdAt, id)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, reportPageSize)

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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &ReportPage{
		Reports:    reports,
		PageSize:   reportPageSize,
		HasNext:    len(reports) == reportPageSize,
		FirstToken: tokenForFirst(reports),
		LastToken:  tokenForLast(reports),
	}

	if req.AfterToken == "" {
		// One count over the unfiltered collection, display only.
		total, err := a.storeCountReports(ctx)
		if err != nil {
			return nil, err
		}
		page.TotalCount = total
	}

	return page, nil
}
