package sporthive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
	defaultBaseURL   = "https://eventresults-api.sporthive.com/api"
	pageSize         = 100
	defaultPageDelay = 300 * time.Millisecond
)

// errEndOfData marks the upstream's "no more pages" signal (a 404 on an
// offset past the last row). It is consumed inside FetchFinishers and never
// escapes the adapter.
var errEndOfData = crerr.New("sporthive: no more data")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// PageDelay is the politeness interval between page requests. Sporthive
	// throttles bursty clients, so the delay stays on even for small events.
	PageDelay time.Duration
	Logger    *logging.Logger
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
		httpClient.Timeout = 15 * time.Second
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

// ResolveLocator extracts (event id, race id) from a Sporthive event URL.
// The race id segment is optional; callers receiving an empty race id should
// offer race selection via ListRaces.
func (c *Client) ResolveLocator(locator string) (string, string, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: locator is required", usecase.ErrInvalidInput)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("%w: parse locator %q: %v", usecase.ErrInvalidInput, locator, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	eventID := ""
	raceID := ""
	for idx := 0; idx < len(segments)-1; idx++ {
		switch strings.ToLower(segments[idx]) {
		case "events", "event":
			if eventID == "" {
				eventID = strings.TrimSpace(segments[idx+1])
			}
		case "races", "race":
			if raceID == "" {
				raceID = strings.TrimSpace(segments[idx+1])
			}
		}
	}

	if eventID == "" {
		return "", "", fmt.Errorf("%w: no event id in locator %q", usecase.ErrInvalidInput, locator)
	}
	return eventID, raceID, nil
}

// ListRaces fetches the event metadata so a caller can pick one race when the
// locator did not resolve to a single race id.
func (c *Client) ListRaces(ctx context.Context, eventID string) ([]usecase.ExternalRace, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("%w: event id is required", usecase.ErrInvalidInput)
	}

	var envelope eventEnvelope
	if _, err := c.doJSON(ctx, "/events/"+url.PathEscape(eventID), nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	out := make([]usecase.ExternalRace, 0, len(envelope.Event.Races))
	for _, race := range envelope.Event.Races {
		id := coerceString(race.ID)
		if id == "" {
			continue
		}
		out = append(out, usecase.ExternalRace{
			ID:       id,
			Name:     strings.TrimSpace(race.Name),
			Distance: coerceInt(race.Distance),
			Date:     strings.TrimSpace(race.Date),
		})
	}
	return out, nil
}

// FetchFinishers crawls the classifications endpoint page by page until a
// page comes back short, empty, or 404. Pages are requested strictly in
// sequence with a politeness delay in between.
func (c *Client) FetchFinishers(ctx context.Context, eventID, raceID string) ([]usecase.ExternalFinisher, error) {
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(raceID) == "" {
		return nil, fmt.Errorf("%w: event id and race id are required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/events/%s/races/%s/classifications/search", url.PathEscape(eventID), url.PathEscape(raceID))
	out := make([]usecase.ExternalFinisher, 0, pageSize)

	for offset := 0; ; offset += pageSize {
		if offset > 0 {
			timer := time.NewTimer(c.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		query := map[string]string{
			"count":  strconv.Itoa(pageSize),
			"offset": strconv.Itoa(offset),
		}
		raw, err := c.doJSON(ctx, path, query, nil)
		if crerr.Is(err, errEndOfData) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch classifications event=%s race=%s offset=%d: %w", eventID, raceID, offset, err)
		}

		rows, err := normalizePage(raw)
		if err != nil {
			return nil, fmt.Errorf("decode classifications event=%s race=%s offset=%d: %w", eventID, raceID, offset, err)
		}

		for _, row := range rows {
			out = append(out, mapClassificationRow(row))
		}

		c.logger.DebugContext(ctx, "sporthive page fetched",
			"event_id", eventID, "race_id", raceID, "offset", offset, "rows", len(rows))

		if len(rows) < pageSize {
			break
		}
	}

	return out, nil
}

// normalizePage resolves the envelope variants into one row-map slice.
func normalizePage(raw []byte) ([]map[string]any, error) {
	var direct []map[string]any
	if err := sonic.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var envelope classificationEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unrecognized response shape: %w", err)
	}

	switch {
	case len(envelope.FullClassifications) > 0:
		rows := make([]map[string]any, 0, len(envelope.FullClassifications))
		for _, item := range envelope.FullClassifications {
			if len(item.Classification) > 0 {
				rows = append(rows, item.Classification)
			}
		}
		return rows, nil
	case len(envelope.Participants) > 0:
		return envelope.Participants, nil
	default:
		return envelope.Results, nil
	}
}

func mapClassificationRow(row map[string]any) usecase.ExternalFinisher {
	genderRaw := getStringAny(row, "gender", "sex", "genderCode")
	if genderRaw == "" {
		if n := getIntAny(row, "gender", "sex"); n > 0 {
			genderRaw = strconv.Itoa(n)
		}
	}

	return usecase.ExternalFinisher{
		Bib:             getStringAny(row, "bib", "bibNumber", "startNumber"),
		Name:            getStringAny(row, "name", "fullName", "displayName", "athleteName"),
		Gender:          finisher.ParseGender(genderRaw),
		AgeGroup:        getStringAny(row, "category", "categoryName", "ageGroup"),
		OverallRank:     getIntPtrAny(row, "rank", "overallRank", "position"),
		GenderRank:      getIntPtrAny(row, "genderRank", "rankGender", "sexRank"),
		AgeGroupRank:    getIntPtrAny(row, "categoryRank", "ageGroupRank", "rankCategory"),
		ChipTimeSeconds: chipTimeSeconds(row),
		CountryCode:     getStringAny(row, "countryCode", "country", "nationality"),
	}
}

// chipTimeSeconds accepts both numeric seconds and display strings, the two
// forms the API has been seen returning for the same field across versions.
func chipTimeSeconds(row map[string]any) *int {
	for _, key := range []string{"chipTime", "finishTime", "time", "netTime"} {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch typed := value.(type) {
		case float64:
			seconds := int(typed)
			if seconds > 0 {
				return &seconds
			}
		case string:
			if seconds, err := racetime.ParseDuration(typed); err == nil {
				return &seconds
			}
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err := c.executeRequest(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	if target != nil {
		if err := sonic.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("decode provider payload: %w", err)
		}
	}
	return raw, nil
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
			case resp.StatusCode == http.StatusNotFound:
				return nil, errEndOfData
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
	c.logger.WarnContext(ctx, "sporthive request failed", "url", fullURL, "error", lastErr)
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

func getStringAny(src map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := src[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func getIntAny(src map[string]any, keys ...string) int {
	for _, key := range keys {
		if n := coerceInt(src[key]); n != 0 {
			return n
		}
	}
	return 0
}

func getIntPtrAny(src map[string]any, keys ...string) *int {
	for _, key := range keys {
		if _, ok := src[key]; !ok {
			continue
		}
		if n := coerceInt(src[key]); n > 0 {
			return &n
		}
	}
	return nil
}

func coerceInt(value any) int {
	switch typed := value.(type) {
	case float64:
		return int(typed)
	case int:
		return typed
	case int64:
		return int(typed)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
			return n
		}
	}
	return 0
}

func coerceString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
