package main

import (
	"strings"
	"testing"
	"time"
)

func TestTruncateWithEllipsis(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short stays whole", "curto", 50, "curto"},
		{"exact limit stays whole", strings.Repeat("a", 50), 50, strings.Repeat("a", 50)},
		{"long gets cut", strings.Repeat("a", 51), 50, strings.Repeat("a", 50) + "..."},
		{"multi-byte counted as runes", "çãéçãéç", 5, "çãéçã..."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncateWithEllipsis(tc.in, tc.limit); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	got := formatTimestamp(time.Date(2024, 3, 1, 14, 30, 5, 0, time.UTC), time.UTC)
	if got != "01/03/2024 14:30:05" {
		t.Fatalf("unexpected format: %q", got)
	}
	if formatTimestamp(time.Time{}, time.UTC) != "Data inválida" {
		t.Fatal("zero time must render the invalid-date label")
	}
}

func TestStatusBadgeFor(t *testing.T) {
	cases := map[string]string{
		"pendente":   "yellow",
		"em_analise": "blue",
		"aprovada":   "teal",
		"resolvida":  "green",
		"rejeitada":  "red",
		"arquivada":  "gray",
	}
	for status, want := range cases {
		if got := statusBadgeFor(status); got != want {
			t.Fatalf("status %q: got %q, want %q", status, got, want)
		}
	}
}

func TestIdentificationAndUserLabels(t *testing.T) {
	anon := Report{}
	if identificationLabel(anon) != "Anônima" || userLabel(anon) != "N/A" {
		t.Fatal("anonymous report labels wrong")
	}

	identified := Report{UserInfo: UserInfo{Name: "Maria Silva", Email: "maria@example.com"}}
	if identificationLabel(identified) != "Identificada" {
		t.Fatal("identified report label wrong")
	}
	if userLabel(identified) != "Maria Silva (maria@example.com)" {
		t.Fatalf("user label wrong: %q", userLabel(identified))
	}
}

func TestBuildReportListRowDefaultsStatus(t *testing.T) {
	row := buildReportListRow(Report{ID: "r-1", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}, time.UTC)
	if row.Status != "pendente" {
		t.Fatalf("absent status must surface as pendente, got %q", row.Status)
	}
	if row.StatusBadge != "yellow" {
		t.Fatalf("badge for default status wrong: %q", row.StatusBadge)
	}
	if row.ImageURLs == nil || row.HasImages {
		t.Fatal("row without images must carry an empty, non-nil slice")
	}
}
