package pdfresults

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/platform/racetime"
	"github.com/paceline/raceresults/internal/usecase"
)

// Parser for flattened multi-page results PDFs (text already extracted by an
// external tool). The same bib typically appears in three structurally
// different sections of a document: a bib-only "overall" leaderboard, a
// gender-only leaderboard, and the canonical age-group section carrying the
// name. The parser walks the text once with an explicit section state and
// merges the three views per bib afterwards.

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionOverall
	sectionGender
	sectionAgeGroup
	sectionWheelchair
)

// State is the full line-reducer state: what race and section the cursor is
// inside. It is a value, so Step can be exercised line by line in tests.
type State struct {
	Race     string
	Section  sectionKind
	Gender   int
	AgeGroup string
}

// RaceRecords is the merged output for one race label found in the text.
// Races that produced no data rows are returned with empty Records so the
// caller can report "no finishers" without failing the whole document.
type RaceRecords struct {
	RaceName string
	Records  []usecase.ExternalFinisher
}

var (
	raceHeaderRe = regexp.MustCompile(`(?i)^\s*((half|full|ultra)\s+marathon|marathon|\d+(\.\d+)?\s*(k|km)|\d+\s*miler?s?|relay)(\s+(results|run|walk))?\s*$`)
	overallRe    = regexp.MustCompile(`(?i)^\s*overall(\s+(results|leaders|finishers))?\s*$`)
	genderOnlyRe = regexp.MustCompile(`(?i)^\s*(male|female|men|women)\s*$`)
	ageGroupRe   = regexp.MustCompile(`(?i)^\s*(male|female|men|women)\s+(\d{1,2}\s*-\s*\d{1,2}|\d{1,2}\s*(\+|and\s+(over|up)))\s*$`)
	wheelchairRe = regexp.MustCompile(`(?i)^\s*open\s+(f|m)\s*$`)

	timeTokenRe = regexp.MustCompile(`^\d{1,2}(:\d{2}){1,2}([.,]\d{1,2})?$`)
	dataRowRe   = regexp.MustCompile(`^\s*(\d+)\.?\s+(\S+)(?:\s+(.+))?$`)

	// Some layouts repeat the category at the end of the name cell; when
	// present it overrides the section-level age group.
	inlineAgeGroupRe = regexp.MustCompile(`(?i)\s+((male|female|men|women|[MF])\s*\d{1,2}(\s*-\s*\d{1,2}|\+))$`)
)

type dataRow struct {
	rank     int
	bib      string
	name     string
	ageGroup string
	seconds  *int
}

// Step classifies one line and returns the next state plus the data row the
// line produced, if any. Lines matching no known pattern (page headers, page
// numbers, blank separators) leave the state untouched and emit nothing.
func Step(state State, line string) (State, *dataRow) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return state, nil
	}

	switch {
	case raceHeaderRe.MatchString(trimmed):
		return State{Race: normalizeRaceName(trimmed)}, nil

	case overallRe.MatchString(trimmed):
		state.Section = sectionOverall
		state.Gender = finisher.GenderUnknown
		state.AgeGroup = ""
		return state, nil

	case ageGroupRe.MatchString(trimmed):
		state.Section = sectionAgeGroup
		state.Gender = finisher.ParseGender(strings.Fields(trimmed)[0])
		state.AgeGroup = normalizeSpace(trimmed)
		return state, nil

	case genderOnlyRe.MatchString(trimmed):
		state.Section = sectionGender
		state.Gender = finisher.ParseGender(trimmed)
		state.AgeGroup = ""
		return state, nil

	case wheelchairRe.MatchString(trimmed):
		state.Section = sectionWheelchair
		state.Gender = finisher.ParseGender(strings.Fields(trimmed)[1])
		state.AgeGroup = normalizeSpace(trimmed)
		return state, nil
	}

	if row := parseDataRow(trimmed); row != nil && state.Race != "" && state.Section != sectionNone {
		return state, row
	}
	return state, nil
}

// parseDataRow handles `rank. bib name-and-possibly-inline-agegroup time
// [time...]`. The last time token is the finish time; earlier tokens are
// intermediate splits and are discarded.
func parseDataRow(line string) *dataRow {
	match := dataRowRe.FindStringSubmatch(line)
	if match == nil {
		return nil
	}

	rank, err := strconv.Atoi(match[1])
	if err != nil || rank <= 0 {
		return nil
	}
	bib := match[2]

	rest := strings.Fields(match[3])
	lastTime := -1
	for idx := len(rest) - 1; idx >= 0; idx-- {
		if timeTokenRe.MatchString(rest[idx]) {
			lastTime = idx
		} else {
			break
		}
	}

	row := dataRow{rank: rank, bib: bib}
	nameTokens := rest
	if lastTime >= 0 {
		chip := rest[len(rest)-1]
		if seconds, err := racetime.ParseDuration(chip); err == nil {
			row.seconds = &seconds
		}
		nameTokens = rest[:lastTime]
	}

	name := strings.TrimSpace(strings.Join(nameTokens, " "))
	if suffix := inlineAgeGroupRe.FindStringSubmatch(" " + name); suffix != nil {
		row.ageGroup = normalizeSpace(suffix[1])
		name = strings.TrimSpace(strings.TrimSuffix(name, suffix[0][1:]))
		name = strings.TrimSpace(name)
	}
	row.name = name

	return &row
}

// raceAccumulator collects the three per-race views joined by bib at the end
// of the pass.
type raceAccumulator struct {
	order            int
	overallRankByBib map[string]int
	genderRankByBib  map[string]int
	nameByBib        map[string]string
	recordsByBib     map[string]usecase.ExternalFinisher
	bibOrder         []string
}

// Parse runs the line reducer over the whole text block and merges the
// per-section views into one record per bib per race. First occurrence wins
// everywhere: duplicate sections for the same bib are ignored.
func Parse(text string) []RaceRecords {
	races := make(map[string]*raceAccumulator)
	state := State{}

	for _, line := range strings.Split(text, "\n") {
		var row *dataRow
		state, row = Step(state, line)
		if state.Race != "" {
			if _, ok := races[state.Race]; !ok {
				races[state.Race] = &raceAccumulator{
					order:            len(races),
					overallRankByBib: make(map[string]int),
					genderRankByBib:  make(map[string]int),
					nameByBib:        make(map[string]string),
					recordsByBib:     make(map[string]usecase.ExternalFinisher),
				}
			}
		}
		if row == nil {
			continue
		}
		races[state.Race].apply(state, row)
	}

	out := make([]RaceRecords, len(races))
	for name, acc := range races {
		out[acc.order] = RaceRecords{RaceName: name, Records: acc.merge()}
	}
	return out
}

func (a *raceAccumulator) apply(state State, row *dataRow) {
	switch state.Section {
	case sectionOverall:
		if _, ok := a.overallRankByBib[row.bib]; !ok {
			a.overallRankByBib[row.bib] = row.rank
		}
		a.noteName(row)
	case sectionGender:
		if _, ok := a.genderRankByBib[row.bib]; !ok {
			a.genderRankByBib[row.bib] = row.rank
		}
		a.noteName(row)
	case sectionAgeGroup, sectionWheelchair:
		if _, ok := a.recordsByBib[row.bib]; ok {
			return
		}
		name := row.name
		if name == row.bib {
			// Layout artifact: the name cell repeats the bib. Keep the row
			// around in case another section supplies the real name, but do
			// not let the bib masquerade as one.
			name = ""
		}
		ageGroup := state.AgeGroup
		if row.ageGroup != "" {
			ageGroup = row.ageGroup
		}
		rank := row.rank
		a.recordsByBib[row.bib] = usecase.ExternalFinisher{
			Bib:             row.bib,
			Name:            name,
			Gender:          state.Gender,
			AgeGroup:        ageGroup,
			AgeGroupRank:    &rank,
			ChipTimeSeconds: row.seconds,
		}
		a.bibOrder = append(a.bibOrder, row.bib)
	}
}

func (a *raceAccumulator) noteName(row *dataRow) {
	if row.name == "" || row.name == row.bib {
		return
	}
	if _, ok := a.nameByBib[row.bib]; !ok {
		a.nameByBib[row.bib] = row.name
	}
}

// merge joins the side maps into the canonical age-group records. Bibs that
// never got a name from any section are dropped: a bib-only row is not an
// identity.
func (a *raceAccumulator) merge() []usecase.ExternalFinisher {
	out := make([]usecase.ExternalFinisher, 0, len(a.bibOrder))
	for _, bib := range a.bibOrder {
		record := a.recordsByBib[bib]
		if record.Name == "" {
			record.Name = a.nameByBib[bib]
		}
		if record.Name == "" {
			continue
		}
		if rank, ok := a.overallRankByBib[bib]; ok {
			rankCopy := rank
			record.OverallRank = &rankCopy
		}
		if rank, ok := a.genderRankByBib[bib]; ok {
			rankCopy := rank
			record.GenderRank = &rankCopy
		}
		out = append(out, record)
	}
	return out
}

func normalizeRaceName(raw string) string {
	name := normalizeSpace(raw)
	for _, suffix := range []string{" results", " Results", " RESULTS"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(name)
}

func normalizeSpace(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
