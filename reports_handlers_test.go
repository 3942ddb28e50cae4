package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestValidateReportSubmission(t *testing.T) {
	valid := reportSubmission{Description: "Descarte irregular", Category: "Lixo"}

	cases := []struct {
		name     string
		mutate   func(sub *reportSubmission)
		wantCode string
	}{
		{"valid passes", func(sub *reportSubmission) {}, ""},
		{"empty description", func(sub *reportSubmission) { sub.Description = "  " }, "invalid_description"},
		{"empty category", func(sub *reportSubmission) { sub.Category = "" }, "invalid_category"},
		{"custom category needs text", func(sub *reportSubmission) { sub.Category = customCategorySentinel }, "invalid_category"},
		{"custom category with text passes", func(sub *reportSubmission) {
			sub.Category = customCategorySentinel
			sub.CustomCategory = "Maus-tratos a animais"
		}, ""},
		{"identified needs name and email", func(sub *reportSubmission) {
			sub.Identified = true
			sub.UserName = "Ana"
		}, "invalid_identification"},
		{"date without time", func(sub *reportSubmission) { sub.ManualDate = "2024-03-01" }, "invalid_manual_timestamp"},
		{"time without date", func(sub *reportSubmission) { sub.ManualTime = "14:30" }, "invalid_manual_timestamp"},
		{"date and time together pass", func(sub *reportSubmission) {
			sub.ManualDate = "2024-03-01"
			sub.ManualTime = "14:30"
		}, ""},
		{"latitude out of range", func(sub *reportSubmission) {
			sub.Location = &ReportLocation{Latitude: 91, Longitude: 0}
		}, "invalid_location"},
		{"too many images", func(sub *reportSubmission) {
			for i := 0; i < maxImageCount+1; i++ {
				sub.Images = append(sub.Images, imageUpload{Name: "a.jpg", MimeType: "image/jpeg", Bytes: []byte{1}})
			}
		}, "too_many_images"},
		{"oversize image", func(sub *reportSubmission) {
			sub.Images = []imageUpload{{Name: "a.jpg", MimeType: "image/jpeg", Bytes: make([]byte, maxImageBytes+1)}}
		}, "image_too_large"},
		{"unsupported image type", func(sub *reportSubmission) {
			sub.Images = []imageUpload{{Name: "a.gif", MimeType: "image/gif", Bytes: []byte{1}}}
		}, "invalid_image_type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := valid
			sub.Images = nil
			tc.mutate(&sub)
			err := validateReportSubmission(sub)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			apiErr, ok := err.(*apiError)
			if !ok {
				t.Fatalf("expected apiError, got %v", err)
			}
			if apiErr.Code != tc.wantCode {
				t.Fatalf("got code %q, want %q", apiErr.Code, tc.wantCode)
			}
		})
	}
}

func TestSubmitReportAnonymousJSON(t *testing.T) {
	app, router := newAdminTestServer(t)
	var stored Report
	app.createReport = func(ctx context.Context, report Report) (*Report, error) {
		stored = report
		report.ID = "r-1"
		report.Status = "pendente"
		report.CreatedAt = time.Now()
		return &report, nil
	}

	body := `{"description":"Fumaça constante vinda do galpão","category":"Poluição do Ar","latitude":-23.5,"longitude":-46.6}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/denuncias", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if stored.ReportType != "anonymous" {
		t.Fatalf("expected anonymous report, got %q", stored.ReportType)
	}
	if stored.UserInfo.Name != "" || stored.UserInfo.Email != "" {
		t.Fatalf("anonymous report must not carry user info: %+v", stored.UserInfo)
	}
	if stored.Location == nil || stored.Location.Latitude != -23.5 {
		t.Fatalf("location not forwarded: %+v", stored.Location)
	}
	if !stored.CreatedAt.IsZero() {
		t.Fatal("without a manual timestamp the store assigns created_at")
	}
}

func TestSubmitReportIdentifiedKeepsUserInfo(t *testing.T) {
	app, router := newAdminTestServer(t)
	var stored Report
	app.createReport = func(ctx context.Context, report Report) (*Report, error) {
		stored = report
		return &report, nil
	}

	body := `{"description":"d","category":"c","identified":true,"userName":" Ana ","userEmail":" ana@example.com "}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/denuncias", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if stored.ReportType != "identified" {
		t.Fatalf("expected identified report, got %q", stored.ReportType)
	}
	if stored.UserInfo.Name != "Ana" || stored.UserInfo.Email != "ana@example.com" {
		t.Fatalf("user info not trimmed: %+v", stored.UserInfo)
	}
}

func TestSubmitReportManualTimestamp(t *testing.T) {
	app, router := newAdminTestServer(t)
	var stored Report
	app.createReport = func(ctx context.Context, report Report) (*Report, error) {
		stored = report
		return &report, nil
	}

	body := `{"description":"d","category":"c","manualDate":"2024-03-01","manualTime":"14:30"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/denuncias", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	want := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	if !stored.CreatedAt.Equal(want) {
		t.Fatalf("manual timestamp not applied: %v", stored.CreatedAt)
	}
}

func TestSubmitReportCustomCategoryReplacesSentinel(t *testing.T) {
	app, router := newAdminTestServer(t)
	var stored Report
	app.createReport = func(ctx context.Context, report Report) (*Report, error) {
		stored = report
		return &report, nil
	}

	body := `{"description":"d","category":"Outros","customCategory":" Maus-tratos "}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/denuncias", strings.NewReader(body))
	req.Header.Set("content-type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if stored.Category != "Maus-tratos" {
		t.Fatalf("custom category not applied: %q", stored.Category)
	}
}

func TestPublicReportDetail(t *testing.T) {
	app, router := newAdminTestServer(t)
	app.getReportByID = func(ctx context.Context, reportID string) (*Report, error) {
		if reportID != "r-1" {
			return nil, nil
		}
		return &Report{ID: "r-1", Description: "Óleo no córrego", Category: "Poluição Hídrica", Status: "em_analise"}, nil
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/denuncias/r-1", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id":"r-1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestPublicReportDetailUnknownID(t *testing.T) {
	app, router := newAdminTestServer(t)
	app.getReportByID = func(ctx context.Context, reportID string) (*Report, error) {
		return nil, nil
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/denuncias/desconhecida", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected %d, got %d", http.StatusNotFound, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Denúncia não encontrada") {
		t.Fatalf("missing localized not-found message: %s", rec.Body.String())
	}
}

func TestSanitizeUploadFilename(t *testing.T) {
	cases := map[string]string{
		"foto final.jpg":  "foto_final.jpg",
		"../../etc/pass":  "pass",
		"relatório*.png":  "relat_rio_.png",
		"simple-name.png": "simple-name.png",
	}
	for in, want := range cases {
		if got := sanitizeUploadFilename(in); got != want {
			t.Fatalf("%q: got %q, want %q", in, got, want)
		}
	}
}

func TestSaveReportImagesWritesAndBuildsURLs(t *testing.T) {
	app, _ := newAdminTestServer(t)
	app.cfg.DataRoot = t.TempDir()

	urls, err := app.saveReportImages(context.Background(), []imageUpload{
		{Name: "a.png", MimeType: "image/png", Bytes: []byte("png-a")},
		{Name: "b.png", MimeType: "image/png", Bytes: []byte("png-b")},
	})
	if err != nil {
		t.Fatalf("save images: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 URLs, got %v", urls)
	}
	for _, u := range urls {
		if !strings.HasPrefix(u, "http://localhost:8080/uploads/"+uploadNamespace+"/") {
			t.Fatalf("unexpected URL: %q", u)
		}
	}
}

func TestSaveReportImagesSameNameStaysDistinct(t *testing.T) {
	app, _ := newAdminTestServer(t)
	app.cfg.DataRoot = t.TempDir()

	urls, err := app.saveReportImages(context.Background(), []imageUpload{
		{Name: "foto.png", MimeType: "image/png", Bytes: []byte("primeira")},
		{Name: "foto.png", MimeType: "image/png", Bytes: []byte("segunda")},
	})
	if err != nil {
		t.Fatalf("save images: %v", err)
	}
	if len(urls) != 2 || urls[0] == urls[1] {
		t.Fatalf("same-named uploads must get distinct URLs: %v", urls)
	}
}
