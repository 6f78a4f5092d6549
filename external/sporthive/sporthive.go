package sporthive

// Envelope shapes observed from the classifications endpoint. Depending on
// event configuration and API version the same endpoint answers with a raw
// array, a "participants" key, a "results" key, or classification rows
// wrapped in "fullClassifications". normalizePage resolves all of them into
// one row-map slice at the boundary.

type classificationEnvelope struct {
	Participants        []map[string]any         `json:"participants"`
	Results             []map[string]any         `json:"results"`
	FullClassifications []fullClassificationItem `json:"fullClassifications"`
}

type fullClassificationItem struct {
	Classification map[string]any `json:"classification"`
}

type eventEnvelope struct {
	Event eventDetails `json:"event"`
}

type eventDetails struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Races []raceDetails `json:"races"`
}

type raceDetails struct {
	ID       any    `json:"id"`
	Name     string `json:"name"`
	Distance any    `json:"distance"`
	Date     string `json:"date"`
}
