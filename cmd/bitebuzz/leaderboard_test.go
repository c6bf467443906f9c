package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Clark-Hu/bitebuzz/internal/domain"
	"github.com/Clark-Hu/bitebuzz/internal/feedback"
	"github.com/Clark-Hu/bitebuzz/internal/menu"
)

func TestPrintLeaderboardTable(t *testing.T) {
	var buf bytes.Buffer
	st := feedback.State{Ratings: domain.Snapshot{"mocktail": 5, "bhel-poori": 3}}
	if err := printLeaderboard(&buf, menu.Default(), st, false); err != nil {
		t.Fatalf("printLeaderboard: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "BiteBuzz Mocktail") || !strings.Contains(lines[1], "5/5") {
		t.Fatalf("first row = %q", lines[1])
	}
	if !strings.Contains(lines[4], "Awaiting feedback") {
		t.Fatalf("last row = %q", lines[4])
	}
}

func TestPrintLeaderboardEmptyAndJSON(t *testing.T) {
	var buf bytes.Buffer
	st := feedback.State{Ratings: domain.Snapshot{}, Error: "Rating service timed out."}
	if err := printLeaderboard(&buf, menu.Default(), st, false); err != nil {
		t.Fatalf("printLeaderboard: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "note: Rating service timed out.") {
		t.Fatalf("missing note:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "No ratings yet") {
		t.Fatalf("missing empty hint:\n%s", buf.String())
	}

	buf.Reset()
	if err := printLeaderboard(&buf, menu.Default(), st, true); err != nil {
		t.Fatalf("printLeaderboard json: %v", err)
	}
	var out struct {
		Entries []map[string]interface{} `json:"entries"`
		Error   string                   `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entries) != len(menu.Default()) || out.Error == "" {
		t.Fatalf("unexpected json output: %+v", out)
	}
}
