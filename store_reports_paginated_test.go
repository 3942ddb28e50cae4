package main

import (
	"testing"
	"time"
)

func TestPageTokenRoundTrip(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 14, 30, 45, 123456789, time.UTC)
	token := encodePageToken(createdAt, "r-42")

	gotTime, gotID, err := decodePageToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !gotTime.Equal(createdAt) {
		t.Fatalf("timestamp mismatch: %v != %v", gotTime, createdAt)
	}
	if gotID != "r-42" {
		t.Fatalf("id mismatch: %q", gotID)
	}
}

func TestPageTokenSurvivesIDWithSeparator(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	token := encodePageToken(createdAt, "left|right")

	_, gotID, err := decodePageToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotID != "left|right" {
		t.Fatalf("id mismatch: %q", gotID)
	}
}

func TestDecodePageTokenRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not base64 !!", "bm8tc2VwYXJhdG9y", ""} {
		if _, _, err := decodePageToken(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}

func TestTokenForFirstAndLast(t *testing.T) {
	if tokenForFirst(nil) != "" || tokenForLast(nil) != "" {
		t.Fatal("empty page must yield empty tokens")
	}

	reports := []Report{
		{ID: "a", CreatedAt: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "b", CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "c", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	_, firstID, err := decodePageToken(tokenForFirst(reports))
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	_, lastID, err := decodePageToken(tokenForLast(reports))
	if err != nil {
		t.Fatalf("decode last: %v", err)
	}
	if firstID != "a" || lastID != "c" {
		t.Fatalf("boundary ids: %q / %q", firstID, lastID)
	}
}
