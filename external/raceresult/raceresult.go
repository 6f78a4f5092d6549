package raceresult

// The list endpoint answers with the discovered field layout, the contest
// partition filters, and row data nested contest -> sub-group -> row arrays.
// Row arrays are positional; columns are located through DataFields, never by
// fixed index, because the layout varies per event configuration.
type listEnvelope struct {
	DataFields   []string                        `json:"DataFields"`
	GroupFilters []string                        `json:"groupFilters"`
	Data         map[string]map[string][][]any `json:"data"`
}

// Schema is the outcome of list discovery for one event.
type Schema struct {
	ListName   string
	DataFields []string
	Contests   []string
}

// Conventional list names tried in order during discovery. The first probe
// returning data wins; organizers who renamed their lists must pass the list
// name explicitly.
var candidateListNames = []string{
	"Result Lists|Overall Results",
	"Result Lists|Results",
	"Online|Results",
	"01 - Overall Results",
	"Ergebnislisten|Ergebnisliste",
}

// Field-name fragments used to locate columns in a discovered layout.
var (
	bibFieldHints      = []string{"bib", "startnumber", "stnr"}
	nameFieldHints     = []string{"name"}
	ageGroupFieldHints = []string{"ageclass", "agegroup", "age class", "category"}
	timeFieldHints     = []string{"time", "finish"}
	rankFieldHints     = []string{"place", "rank", "pos"}
	genderFieldHints   = []string{"gender", "sex"}
	countryFieldHints  = []string{"nation", "country"}
)
