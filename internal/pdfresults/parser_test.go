package pdfresults

import (
	"testing"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/usecase"
)

const halfMarathonText = `
Half Marathon Results

Overall
1. 1
2. 2
3. 3

Female
1. 2
2. 3

Female 30-34
1. 2 Jane Doe 1:45:00
2. 5 Ann Pace 1:52:10

Male 35-39
1. 1 John Roe 1:44:30
`

func TestParse_MergesSectionsPerBib(t *testing.T) {
	races := Parse(halfMarathonText)
	if len(races) != 1 {
		t.Fatalf("unexpected race count: %d", len(races))
	}
	if races[0].RaceName != "Half Marathon" {
		t.Fatalf("unexpected race name: %q", races[0].RaceName)
	}

	var jane *usecase.ExternalFinisher
	for i := range races[0].Records {
		if races[0].Records[i].Bib == "2" {
			jane = &races[0].Records[i]
		}
	}
	if jane == nil {
		t.Fatalf("bib 2 missing from merged output: %+v", races[0].Records)
	}

	if jane.Name != "Jane Doe" {
		t.Fatalf("unexpected name: %q", jane.Name)
	}
	if jane.Gender != finisher.GenderFemale {
		t.Fatalf("unexpected gender: %d", jane.Gender)
	}
	if jane.AgeGroup != "Female 30-34" {
		t.Fatalf("unexpected age group: %q", jane.AgeGroup)
	}
	if jane.OverallRank == nil || *jane.OverallRank != 2 {
		t.Fatalf("unexpected overall rank: %v", jane.OverallRank)
	}
	if jane.GenderRank == nil || *jane.GenderRank != 1 {
		t.Fatalf("unexpected gender rank: %v", jane.GenderRank)
	}
	if jane.AgeGroupRank == nil || *jane.AgeGroupRank != 1 {
		t.Fatalf("unexpected age group rank: %v", jane.AgeGroupRank)
	}
	if jane.ChipTimeSeconds == nil || *jane.ChipTimeSeconds != 6300 {
		t.Fatalf("unexpected chip time: %v", jane.ChipTimeSeconds)
	}
}

func TestParse_BibOnlyRecordsNeedANameFromSomeSection(t *testing.T) {
	text := `
10K Results

Female 30-34
1. 77 77 55:00
2. 78 Real Runner 56:10
`
	races := Parse(text)
	if len(races) != 1 {
		t.Fatalf("unexpected race count: %d", len(races))
	}
	records := races[0].Records
	if len(records) != 1 {
		t.Fatalf("bib-masquerading-as-name row must be dropped, got %+v", records)
	}
	if records[0].Bib != "78" || records[0].Name != "Real Runner" {
		t.Fatalf("unexpected surviving record: %+v", records[0])
	}
}

func TestParse_MultipleRacesResetState(t *testing.T) {
	text := `
Half Marathon
Female 30-34
1. 2 Jane Doe 1:45:00

10K Run
Male 40-44
1. 9 Ken Brook 41:20
`
	races := Parse(text)
	if len(races) != 2 {
		t.Fatalf("unexpected race count: %d", len(races))
	}
	if races[0].RaceName != "Half Marathon" || races[1].RaceName != "10K Run" {
		t.Fatalf("unexpected race names: %q, %q", races[0].RaceName, races[1].RaceName)
	}
	if len(races[0].Records) != 1 || races[0].Records[0].Bib != "2" {
		t.Fatalf("unexpected first race records: %+v", races[0].Records)
	}
	if len(races[1].Records) != 1 || races[1].Records[0].Bib != "9" {
		t.Fatalf("unexpected second race records: %+v", races[1].Records)
	}
}

func TestParse_WheelchairSection(t *testing.T) {
	text := `
Marathon
Open F
1. 12 Grace Wheeler 2:05:33
`
	races := Parse(text)
	if len(races) != 1 || len(races[0].Records) != 1 {
		t.Fatalf("unexpected output: %+v", races)
	}
	record := races[0].Records[0]
	if record.Gender != finisher.GenderFemale {
		t.Fatalf("unexpected gender: %d", record.Gender)
	}
	if record.AgeGroup != "Open F" {
		t.Fatalf("unexpected category: %q", record.AgeGroup)
	}
}

func TestParse_LastTimeTokenWins(t *testing.T) {
	text := `
Marathon
Male 35-39
1. 4 Split Keeper 1:01:00 2:02:00 3:03:00
`
	races := Parse(text)
	record := races[0].Records[0]
	if record.ChipTimeSeconds == nil || *record.ChipTimeSeconds != 3*3600+3*60 {
		t.Fatalf("unexpected chip time: %v", record.ChipTimeSeconds)
	}
	if record.Name != "Split Keeper" {
		t.Fatalf("unexpected name: %q", record.Name)
	}
}

func TestParse_InlineAgeGroupOverridesSection(t *testing.T) {
	text := `
Marathon
Female 30-34
1. 6 Mia Cross F35-39 1:58:00
`
	races := Parse(text)
	record := races[0].Records[0]
	if record.AgeGroup != "F35-39" {
		t.Fatalf("unexpected age group: %q", record.AgeGroup)
	}
	if record.Name != "Mia Cross" {
		t.Fatalf("unexpected name: %q", record.Name)
	}
}

func TestParse_RowsOutsideAnySectionAreIgnored(t *testing.T) {
	text := `
1. 2 Stray Row 1:45:00

Half Marathon
1. 3 Still Stray 1:46:00
`
	races := Parse(text)
	if len(races) != 1 {
		t.Fatalf("unexpected race count: %d", len(races))
	}
	if len(races[0].Records) != 0 {
		t.Fatalf("rows before any section header must be ignored, got %+v", races[0].Records)
	}
}

func TestStep_Classification(t *testing.T) {
	state := State{}

	state, row := Step(state, "Half Marathon Results")
	if row != nil || state.Race != "Half Marathon" || state.Section != sectionNone {
		t.Fatalf("unexpected state after race header: %+v", state)
	}

	state, row = Step(state, "Overall")
	if row != nil || state.Section != sectionOverall {
		t.Fatalf("unexpected state after overall header: %+v", state)
	}

	state, row = Step(state, "Female 30-34")
	if row != nil || state.Section != sectionAgeGroup || state.Gender != finisher.GenderFemale || state.AgeGroup != "Female 30-34" {
		t.Fatalf("unexpected state after age group header: %+v", state)
	}

	state, row = Step(state, "Male")
	if row != nil || state.Section != sectionGender || state.Gender != finisher.GenderMale || state.AgeGroup != "" {
		t.Fatalf("unexpected state after gender header: %+v", state)
	}

	state, row = Step(state, "1. 42 Jane Doe 1:45:00")
	if row == nil || row.rank != 1 || row.bib != "42" || row.name != "Jane Doe" {
		t.Fatalf("unexpected data row: %+v", row)
	}

	state, row = Step(state, "Page 3 of 12")
	if row != nil || state.Section != sectionGender {
		t.Fatalf("noise line must not change state: %+v", state)
	}
}
