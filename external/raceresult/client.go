package raceresult

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/paceline/raceresults/internal/domain/finisher"
	"github.com/paceline/raceresults/internal/platform/logging"
	"github.com/paceline/raceresults/internal/platform/racetime"
	"github.com/paceline/raceresults/internal/usecase"
)

const (
	defaultBaseURL   = "https://my1.raceresult.com"
	pageSize         = 100
	probePageSize    = 1
	defaultPageDelay = 300 * time.Millisecond
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	PageDelay  time.Duration
	Logger     *logging.Logger
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	pageDelay  time.Duration
	logger     *logging.Logger
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		maxRetries: maxInt(cfg.MaxRetries, 0),
		pageDelay:  pageDelay,
		logger:     logger,
	}
}

// ResolveLocator extracts the numeric event id from a RaceResult URL.
func (c *Client) ResolveLocator(locator string) (string, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return "", fmt.Errorf("%w: locator is required", usecase.ErrInvalidInput)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: parse locator %q: %v", usecase.ErrInvalidInput, locator, err)
	}

	for _, segment := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if _, err := strconv.ParseInt(segment, 10, 64); err == nil {
			return segment, nil
		}
	}
	return "", fmt.Errorf("%w: no event id in locator %q", usecase.ErrInvalidInput, locator)
}

// listFetcher is the transport seam for discovery so it can run against a
// stub in tests.
type listFetcher interface {
	fetchListPage(ctx context.Context, eventID, listName, contest string, page, size int) (*listEnvelope, error)
}

// Discover probes the conventional list names in order with a one-row
// request; the first probe with data supplies the field layout and the
// contest filters for the full fetch.
func Discover(ctx context.Context, fetcher listFetcher, eventID string, candidates []string) (Schema, error) {
	if len(candidates) == 0 {
		candidates = candidateListNames
	}

	for _, name := range candidates {
		page, err := fetcher.fetchListPage(ctx, eventID, name, "", 0, probePageSize)
		if err != nil {
			if ctx.Err() != nil {
				return Schema{}, ctx.Err()
			}
			continue
		}
		if page == nil || !envelopeHasRows(page) {
			continue
		}
		return Schema{
			ListName:   name,
			DataFields: page.DataFields,
			Contests:   contestsFromEnvelope(page),
		}, nil
	}

	return Schema{}, fmt.Errorf(
		"%w: no candidate list name returned data for event %s, pass the list name explicitly",
		usecase.ErrDiscoveryFailed, eventID)
}

// FetchFinishers crawls every contest of the event. An empty listName runs
// discovery first; a caller-supplied name skips the candidate loop but still
// probes once for the field layout.
func (c *Client) FetchFinishers(ctx context.Context, eventID, listName string) ([]usecase.ExternalFinisher, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: event id is required", usecase.ErrInvalidInput)
	}

	var candidates []string
	if name := strings.TrimSpace(listName); name != "" {
		candidates = []string{name}
	}
	schema, err := Discover(ctx, c, eventID, candidates)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "raceresult list discovered",
		"event_id", eventID, "list_name", schema.ListName,
		"fields", len(schema.DataFields), "contests", len(schema.Contests))

	contests := schema.Contests
	if len(contests) == 0 {
		// Single-contest events publish everything under one unfiltered list.
		contests = []string{""}
	}

	out := make([]usecase.ExternalFinisher, 0, pageSize)
	for _, contest := range contests {
		records, err := c.fetchContest(ctx, eventID, schema, contest)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}

	out = dedupeByContestBib(out)

	// Backfill runs after dedupe so the assigned ranks stay dense.
	if fieldIndex(schema.DataFields, rankFieldHints) < 0 {
		backfillOverallRanks(out)
	}

	return out, nil
}

func (c *Client) fetchContest(ctx context.Context, eventID string, schema Schema, contest string) ([]usecase.ExternalFinisher, error) {
	records := make([]usecase.ExternalFinisher, 0, pageSize)
	total := -1

	for page := 0; ; page++ {
		if page > 0 {
			timer := time.NewTimer(c.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		envelope, err := c.fetchListPage(ctx, eventID, schema.ListName, contest, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch list event=%s contest=%q page=%d: %w", eventID, contest, page, err)
		}

		pageRecords, pageTotal, rowsSeen := parseContestPage(envelope, schema, contest)
		records = append(records, pageRecords...)
		if pageTotal > 0 {
			total = pageTotal
		}

		c.logger.DebugContext(ctx, "raceresult page fetched",
			"event_id", eventID, "contest", contest, "page", page,
			"rows", rowsSeen, "total", total)

		if rowsSeen < pageSize {
			break
		}
		if total >= 0 && (page+1)*pageSize >= total {
			break
		}
	}

	return records, nil
}

// parseContestPage walks the sub-groups of one contest. The last entry of
// every sub-group is a single-element total-count sentinel, not a data row.
// Sub-groups with an empty label are an unnamed duplicate bib-only listing
// and are skipped wholesale to avoid double-counting every finisher.
func parseContestPage(envelope *listEnvelope, schema Schema, contest string) ([]usecase.ExternalFinisher, int, int) {
	groups := groupsForContest(envelope, contest)
	if len(groups) == 0 {
		return nil, 0, 0
	}

	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	records := make([]usecase.ExternalFinisher, 0, pageSize)
	total := 0
	rowsSeen := 0

	for _, label := range labels {
		if strings.TrimSpace(label) == "" {
			continue
		}
		rows := groups[label]
		if len(rows) == 0 {
			continue
		}

		if last := rows[len(rows)-1]; len(last) == 1 {
			if n := coerceInt(last[0]); n > 0 {
				total += n
			}
			rows = rows[:len(rows)-1]
		}

		for _, row := range rows {
			rowsSeen++
			record, ok := mapListRow(row, schema.DataFields, label, contest)
			if !ok {
				continue
			}
			records = append(records, record)
		}
	}

	return records, total, rowsSeen
}

func mapListRow(row []any, fields []string, groupLabel, contest string) (usecase.ExternalFinisher, bool) {
	name := strings.TrimSpace(fieldString(row, fields, nameFieldHints))
	bib := strings.TrimSpace(fieldString(row, fields, bibFieldHints))
	if name == "" || name == bib {
		// Bib-only noise rows carry no identity worth persisting.
		return usecase.ExternalFinisher{}, false
	}

	gender := finisher.ParseGender(fieldString(row, fields, genderFieldHints))
	if gender == finisher.GenderUnknown {
		gender = genderFromGroupLabel(groupLabel)
	}

	return usecase.ExternalFinisher{
		Bib:             bib,
		Name:            name,
		Gender:          gender,
		AgeGroup:        strings.TrimSpace(fieldString(row, fields, ageGroupFieldHints)),
		OverallRank:     fieldIntPtr(row, fields, rankFieldHints),
		ChipTimeSeconds: fieldTimePtr(row, fields, timeFieldHints),
		CountryCode:     strings.TrimSpace(fieldString(row, fields, countryFieldHints)),
		Contest:         contest,
	}, true
}

// genderFromGroupLabel covers layouts where the sub-group label is the only
// gender signal ("Men", "Women 10K", "Female").
func genderFromGroupLabel(label string) int {
	for _, word := range strings.Fields(strings.ToLower(label)) {
		if g := finisher.ParseGender(word); g != finisher.GenderUnknown {
			return g
		}
	}
	return finisher.GenderUnknown
}

// backfillOverallRanks assigns dense 1-based overall ranks by chip time when
// the source layout carries no rank column. Records without a time sort last
// and still receive a rank.
func backfillOverallRanks(records []usecase.ExternalFinisher) {
	sort.SliceStable(records, func(i, j int) bool {
		left, right := records[i].ChipTimeSeconds, records[j].ChipTimeSeconds
		switch {
		case left == nil && right == nil:
			return false
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return *left < *right
		}
	})
	for idx := range records {
		rank := idx + 1
		records[idx].OverallRank = &rank
	}
}

// dedupeByContestBib keeps the first record per (contest, bib) pair. Two
// contests sharing a bib namespace stay distinct.
func dedupeByContestBib(records []usecase.ExternalFinisher) []usecase.ExternalFinisher {
	seen := make(map[string]struct{}, len(records))
	out := make([]usecase.ExternalFinisher, 0, len(records))
	for _, record := range records {
		if record.Bib == "" {
			out = append(out, record)
			continue
		}
		key := record.Contest + "\x00" + record.Bib
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, record)
	}
	return out
}

func groupsForContest(envelope *listEnvelope, contest string) map[string][][]any {
	if envelope == nil || len(envelope.Data) == 0 {
		return nil
	}
	if contest != "" {
		if groups, ok := envelope.Data[contest]; ok {
			return groups
		}
	}
	if len(envelope.Data) == 1 {
		for _, groups := range envelope.Data {
			return groups
		}
	}
	return nil
}

func envelopeHasRows(envelope *listEnvelope) bool {
	for _, groups := range envelope.Data {
		for _, rows := range groups {
			if len(rows) > 0 {
				return true
			}
		}
	}
	return false
}

func contestsFromEnvelope(envelope *listEnvelope) []string {
	if len(envelope.GroupFilters) > 0 {
		out := make([]string, 0, len(envelope.GroupFilters))
		for _, filter := range envelope.GroupFilters {
			if trimmed := strings.TrimSpace(filter); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}

	out := make([]string, 0, len(envelope.Data))
	for contest := range envelope.Data {
		if contest != "" {
			out = append(out, contest)
		}
	}
	sort.Strings(out)
	return out
}

// fieldIndex locates a column by case-insensitive substring match against
// the discovered field names.
func fieldIndex(fields []string, hints []string) int {
	for _, hint := range hints {
		for idx, field := range fields {
			if strings.Contains(strings.ToLower(field), hint) {
				return idx
			}
		}
	}
	return -1
}

func fieldString(row []any, fields []string, hints []string) string {
	idx := fieldIndex(fields, hints)
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return coerceString(row[idx])
}

func fieldIntPtr(row []any, fields []string, hints []string) *int {
	idx := fieldIndex(fields, hints)
	if idx < 0 || idx >= len(row) {
		return nil
	}
	if n := coerceInt(row[idx]); n > 0 {
		return &n
	}
	return nil
}

func fieldTimePtr(row []any, fields []string, hints []string) *int {
	idx := fieldIndex(fields, hints)
	if idx < 0 || idx >= len(row) {
		return nil
	}
	switch typed := row[idx].(type) {
	case float64:
		if seconds := int(typed); seconds > 0 {
			return &seconds
		}
	case string:
		if seconds, err := racetime.ParseDuration(typed); err == nil {
			return &seconds
		}
	}
	return nil
}

func (c *Client) fetchListPage(ctx context.Context, eventID, listName, contest string, page, size int) (*listEnvelope, error) {
	query := url.Values{}
	query.Set("listname", listName)
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	if contest != "" {
		query.Set("contest", contest)
	}

	fullURL := fmt.Sprintf("%s/%s/RRPublish/data/list?%s", c.baseURL, url.PathEscape(eventID), query.Encode())
	raw, err := c.executeRequest(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}
	return &envelope, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response body: %w", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			default:
				lastErr = crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				if !isRetryableStatus(resp.StatusCode) {
					return nil, lastErr
				}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "raceresult request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func coerceString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	}
	return ""
}

func coerceInt(value any) int {
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
			return n
		}
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
