package raceresult

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/paceline/raceresults/internal/usecase"
)

type stubFetcher struct {
	pages map[string]*listEnvelope
	calls []string
}

func (s *stubFetcher) fetchListPage(_ context.Context, _, listName, _ string, _, _ int) (*listEnvelope, error) {
	s.calls = append(s.calls, listName)
	page, ok := s.pages[listName]
	if !ok {
		return nil, crerr.New("provider status=404")
	}
	return page, nil
}

func envelopeWithRows() *listEnvelope {
	return &listEnvelope{
		DataFields:   []string{"Bib", "Name", "Time"},
		GroupFilters: []string{"10K"},
		Data: map[string]map[string][][]any{
			"10K": {"Women": {{"101", "Jane Doe", "45:00"}, {float64(1)}}},
		},
	}
}

func TestDiscover_FirstCandidateWithDataWins(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string]*listEnvelope{
			"Result Lists|Results": {DataFields: []string{"Bib"}},
			"Online|Results":       envelopeWithRows(),
		},
	}

	schema, err := Discover(t.Context(), fetcher, "355000", nil)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if schema.ListName != "Online|Results" {
		t.Fatalf("unexpected list name: %q", schema.ListName)
	}
	if len(schema.DataFields) != 3 || len(schema.Contests) != 1 || schema.Contests[0] != "10K" {
		t.Fatalf("unexpected schema: %+v", schema)
	}

	want := []string{"Result Lists|Overall Results", "Result Lists|Results", "Online|Results"}
	if len(fetcher.calls) != len(want) {
		t.Fatalf("unexpected probe sequence: %v", fetcher.calls)
	}
	for i, name := range want {
		if fetcher.calls[i] != name {
			t.Fatalf("probe %d: got %q, want %q", i, fetcher.calls[i], name)
		}
	}
}

func TestDiscover_ExplicitCandidateOnly(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string]*listEnvelope{"My Custom List": envelopeWithRows()},
	}

	schema, err := Discover(t.Context(), fetcher, "355000", []string{"My Custom List"})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if schema.ListName != "My Custom List" || len(fetcher.calls) != 1 {
		t.Fatalf("unexpected outcome: schema=%+v calls=%v", schema, fetcher.calls)
	}
}

func TestDiscover_AllCandidatesEmpty(t *testing.T) {
	fetcher := &stubFetcher{}

	_, err := Discover(t.Context(), fetcher, "355000", nil)
	if !errors.Is(err, usecase.ErrDiscoveryFailed) {
		t.Fatalf("expected ErrDiscoveryFailed, got %v", err)
	}
	if len(fetcher.calls) != len(candidateListNames) {
		t.Fatalf("expected every candidate probed, got %v", fetcher.calls)
	}
}

func newListTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		BaseURL:   server.URL,
		PageDelay: time.Millisecond,
	})
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, envelope *listEnvelope) {
	t.Helper()
	raw, err := sonic.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	w.Write(raw) //nolint:errcheck
}

func TestFetchFinishers_ContestsStayDistinctAndRanksBackfill(t *testing.T) {
	fields := []string{"Bib", "Name", "Time", "Gender"}

	client := newListTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/355000/RRPublish/data/list" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("listname"); got != "Online|Results" {
			t.Errorf("unexpected listname: %q", got)
		}

		switch r.URL.Query().Get("contest") {
		case "":
			// Discovery probe: layout plus contest filters, one row.
			writeEnvelope(t, w, &listEnvelope{
				DataFields:   fields,
				GroupFilters: []string{"10K", "Half Marathon"},
				Data: map[string]map[string][][]any{
					"10K": {"Women": {{"101", "Jane Doe", "45:00", "F"}, {float64(1)}}},
				},
			})
		case "10K":
			writeEnvelope(t, w, &listEnvelope{
				DataFields: fields,
				Data: map[string]map[string][][]any{
					"10K": {
						"Women": {
							{"101", "Jane Doe", "45:00", "F"},
							{"102", "Ann Pace", "46:10", "F"},
							{float64(2)},
						},
						// Duplicate of bib 101 under a finer sub-group.
						"Women 30-34": {{"101", "Jane Doe", "45:00", "F"}, {float64(1)}},
						// Unnamed duplicate listing, skipped wholesale.
						"": {{"101"}, {"102"}, {float64(2)}},
					},
				},
			})
		case "Half Marathon":
			writeEnvelope(t, w, &listEnvelope{
				DataFields: fields,
				Data: map[string]map[string][][]any{
					"Half Marathon": {"Men": {{"101", "John Roe", "1:30:00", "M"}, {float64(1)}}},
				},
			})
		default:
			t.Errorf("unexpected contest: %q", r.URL.Query().Get("contest"))
		}
	})

	records, err := client.FetchFinishers(t.Context(), "355000", "Online|Results")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("unexpected record count: %d, records=%+v", len(records), records)
	}

	byKey := make(map[string]usecase.ExternalFinisher, len(records))
	for _, record := range records {
		byKey[record.Contest+"/"+record.Bib] = record
	}
	if _, ok := byKey["10K/101"]; !ok {
		t.Fatalf("missing 10K bib 101: %+v", records)
	}
	if _, ok := byKey["Half Marathon/101"]; !ok {
		t.Fatalf("shared bib across contests must stay distinct: %+v", records)
	}

	// No rank column in the layout, so ranks come from chip-time order.
	jane := byKey["10K/101"]
	if jane.OverallRank == nil || *jane.OverallRank != 1 {
		t.Fatalf("unexpected rank for fastest record: %v", jane.OverallRank)
	}
	john := byKey["Half Marathon/101"]
	if john.OverallRank == nil || *john.OverallRank != 3 {
		t.Fatalf("unexpected rank for slowest record: %v", john.OverallRank)
	}
	if jane.ChipTimeSeconds == nil || *jane.ChipTimeSeconds != 2700 {
		t.Fatalf("unexpected chip time: %v", jane.ChipTimeSeconds)
	}
	if jane.Gender != 2 || john.Gender != 1 {
		t.Fatalf("unexpected genders: jane=%d john=%d", jane.Gender, john.Gender)
	}
}

func TestFetchFinishers_KeepsRankColumnWhenPresent(t *testing.T) {
	fields := []string{"Place", "Bib", "Name", "Time"}

	client := newListTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, &listEnvelope{
			DataFields:   fields,
			GroupFilters: []string{"10K"},
			Data: map[string]map[string][][]any{
				"10K": {"All": {
					{float64(2), "102", "Ann Pace", "46:10"},
					{float64(1), "101", "Jane Doe", "45:00"},
					{float64(2)},
				}},
			},
		})
	})

	records, err := client.FetchFinishers(t.Context(), "355000", "Online|Results")
	if err != nil {
		t.Fatalf("fetch finishers failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("unexpected record count: %d", len(records))
	}
	// Source order preserved, source ranks untouched.
	if records[0].Bib != "102" || records[0].OverallRank == nil || *records[0].OverallRank != 2 {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
}

func TestResolveLocator_RaceResult(t *testing.T) {
	client := NewClient(ClientConfig{})

	eventID, err := client.ResolveLocator("https://my1.raceresult.com/355000/results")
	if err != nil || eventID != "355000" {
		t.Fatalf("unexpected result: id=%q err=%v", eventID, err)
	}

	if _, err := client.ResolveLocator("https://my1.raceresult.com/about/"); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
