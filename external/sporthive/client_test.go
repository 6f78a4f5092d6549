package sporthive

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL:   server.URL,
		PageDelay: time.Millisecond,
	})
}

func classificationPage(start, count int) []byte {
	items := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, map[string]any{
			"classification": map[string]any{
				"bib":      strconv.Itoa(start + i + 1),
				"name":     fmt.Sprintf("Runner %d", start+i+1),
				"gender":   "F",
				"category": "F30-34",
				"rank":     float64(start + i + 1),
				"chipTime": "1:21:37",
			},
		})
	}
	raw, _ := sonic.Marshal(map[string]any{"fullClassifications": items})
	return raw
}

func TestFetchFinishers_PaginatesUntilShortPage(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if got := r.URL.Query().Get("count"); got != "100" {
			t.Errorf("unexpected count param: %s", got)
		}

		switch offset {
		case 0, 100:
			w.Write(classificationPage(offset, 100))
		case 200:
			w.Write(classificationPage(offset, 37))
		default:
			t.Errorf("unexpected offset: %d", offset)
			w.Write([]byte(`{"fullClassifications":[]}`))
		}
	})

	records, err := client.FetchFinishers(t.Context(), "6001", "474689")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 237 {
		t.Fatalf("unexpected record count: %d", len(records))
	}
	if requests != 3 {
		t.Fatalf("unexpected request count: %d", requests)
	}

	first := records[0]
	if first.Bib != "1" || first.Name != "Runner 1" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.OverallRank == nil || *first.OverallRank != 1 {
		t.Fatalf("unexpected overall rank: %v", first.OverallRank)
	}
	if first.ChipTimeSeconds == nil || *first.ChipTimeSeconds != 4897 {
		t.Fatalf("unexpected chip time: %v", first.ChipTimeSeconds)
	}
}

func TestFetchFinishers_NotFoundEndsPagination(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if offset == 0 {
			w.Write(classificationPage(0, 100))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	records, err := client.FetchFinishers(t.Context(), "6001", "474689")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 100 {
		t.Fatalf("unexpected record count: %d", len(records))
	}
	if requests != 2 {
		t.Fatalf("unexpected request count: %d", requests)
	}
}

func TestFetchFinishers_AcceptsBareArrayPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"bibNumber": "7", "fullName": "Ada Swift", "sex": 2, "position": 1, "finishTime": 4897.0},
			{"bibNumber": "8", "fullName": "Ben Ochieng", "sex": 1, "position": 2, "finishTime": "1:22:00"}
		]`))
	})

	records, err := client.FetchFinishers(t.Context(), "6001", "474689")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("unexpected record count: %d", len(records))
	}
	if records[0].Name != "Ada Swift" || records[0].Gender != 2 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].ChipTimeSeconds == nil || *records[0].ChipTimeSeconds != 4897 {
		t.Fatalf("unexpected numeric chip time: %v", records[0].ChipTimeSeconds)
	}
	if records[1].ChipTimeSeconds == nil || *records[1].ChipTimeSeconds != 4920 {
		t.Fatalf("unexpected string chip time: %v", records[1].ChipTimeSeconds)
	}
}

func TestFetchFinishers_RetriesServerErrors(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"bib":"1","name":"Solo Runner"}]`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		PageDelay:  time.Millisecond,
		MaxRetries: 1,
	})

	records, err := client.FetchFinishers(t.Context(), "6001", "474689")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 1 || requests != 2 {
		t.Fatalf("unexpected outcome: records=%d requests=%d", len(records), requests)
	}
}

func TestListRaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/6001" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"event": {"races": [
			{"id": 474689, "name": "Half Marathon", "distance": 21097, "date": "2026-04-12"},
			{"id": 474690, "name": "10K", "distance": 10000}
		]}}`))
	})

	races, err := client.ListRaces(t.Context(), "6001")
	if err != nil {
		t.Fatalf("list races failed: %v", err)
	}
	if len(races) != 2 {
		t.Fatalf("unexpected race count: %d", len(races))
	}
	if races[0].ID != "474689" || races[0].Name != "Half Marathon" || races[0].Distance != 21097 {
		t.Fatalf("unexpected first race: %+v", races[0])
	}
}

func TestResolveLocator(t *testing.T) {
	client := NewClient(ClientConfig{})

	tests := []struct {
		locator   string
		wantEvent string
		wantRace  string
		wantErr   bool
	}{
		{locator: "https://results.sporthive.com/events/6001/races/474689", wantEvent: "6001", wantRace: "474689"},
		{locator: "/events/6001", wantEvent: "6001"},
		{locator: "https://results.sporthive.com/events/6001/races/474689/leaderboard", wantEvent: "6001", wantRace: "474689"},
		{locator: "https://results.sporthive.com/somewhere/else", wantErr: true},
		{locator: "   ", wantErr: true},
	}

	for _, tc := range tests {
		eventID, raceID, err := client.ResolveLocator(tc.locator)
		if tc.wantErr {
			if err == nil {
				t.Errorf("locator %q: expected error", tc.locator)
			}
			continue
		}
		if err != nil {
			t.Errorf("locator %q: unexpected error: %v", tc.locator, err)
			continue
		}
		if eventID != tc.wantEvent || raceID != tc.wantRace {
			t.Errorf("locator %q: got (%s, %s), want (%s, %s)", tc.locator, eventID, raceID, tc.wantEvent, tc.wantRace)
		}
	}
}
