// Package fema rebuilds the disaster declaration dataset from the OpenFEMA
// DisasterDeclarationsSummaries API.
package fema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/window"
	"github.com/ppiankov/sepcheck/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching the API.
var ErrDisallowed = errors.New("fetch disallowed by robots.txt")

// Summary is one row of the API response. FEMA emits one row per
// designated area, so a single disaster spans many rows.
type Summary struct {
	DisasterNumber    int    `json:"disasterNumber"`
	State             string `json:"state"`
	DeclarationType   string `json:"declarationType"`
	IncidentType      string `json:"incidentType"`
	DesignatedArea    string `json:"designatedArea"`
	IncidentBeginDate string `json:"incidentBeginDate"`
	IncidentEndDate   string `json:"incidentEndDate"`
}

type summariesResponse struct {
	Summaries []Summary `json:"DisasterDeclarationsSummaries"`
}

// Result describes one refresh run.
type Result struct {
	Fetched int
	Written int
	Skipped int
	Path    string
}

// Options configures a Refresher.
type Options struct {
	URL        string
	Top        int
	OutputPath string
}

// Refresher fetches declarations and writes the dataset file.
type Refresher struct {
	opts    Options
	fetcher *Fetcher
	robots  *RobotsChecker
	limiter *worker.Limiter
	logger  *slog.Logger
}

// NewRefresher wires a refresher. robots and limiter may be nil.
func NewRefresher(opts Options, fetcher *Fetcher, robots *RobotsChecker, limiter *worker.Limiter, logger *slog.Logger) *Refresher {
	if opts.Top <= 0 {
		opts.Top = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{opts: opts, fetcher: fetcher, robots: robots, limiter: limiter, logger: logger}
}

// QueryURL returns the API URL ordered by newest declaration first.
func (r *Refresher) QueryURL() string {
	q := "$orderby=" + url.PathEscape("declarationDate desc") + "&$top=" + strconv.Itoa(r.opts.Top)
	if strings.Contains(r.opts.URL, "?") {
		return r.opts.URL + "&" + q
	}
	return r.opts.URL + "?" + q
}

// Refresh fetches the latest declarations, keeps the ones still active on
// asOf and replaces the dataset file. The old file is untouched on error.
func (r *Refresher) Refresh(ctx context.Context, asOf time.Time) (*Result, error) {
	target := r.QueryURL()

	var delay time.Duration
	if r.robots != nil {
		allowed, crawlDelay, err := r.robots.CanFetch(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, ErrDisallowed
		}
		delay = crawlDelay
	}
	if err := r.limiter.WaitWithDelay(ctx, target, delay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := r.fetcher.FetchWithRetry(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("fetch declarations: %w", err)
	}

	var resp summariesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode declarations: %w", err)
	}

	decls, skipped := Convert(resp.Summaries, asOf)
	if err := WriteDataset(r.opts.OutputPath, decls); err != nil {
		return nil, err
	}

	res := &Result{Fetched: len(resp.Summaries), Written: len(decls), Skipped: skipped, Path: r.opts.OutputPath}
	r.logger.Info("disaster dataset refreshed",
		"fetched", res.Fetched, "written", res.Written, "skipped", res.Skipped, "path", res.Path)
	return res, nil
}

var (
	// areaSuffix matches the entity-type suffix FEMA appends to area names.
	areaSuffix = regexp.MustCompile(`\s*\((County|Parish|Borough|Census Area|Municipio|Municipality|City|Reservation)\)\s*$`)
	// statewide matches "All", "(All Counties)" and "Statewide" but not
	// county names such as Allegheny.
	statewide = regexp.MustCompile(`\bAll\b|(?i:statewide)`)
)

// NormalizeArea maps a designatedArea to a dataset county entry.
// Statewide designations become the ALL sentinel.
func NormalizeArea(area string) string {
	area = strings.TrimSpace(area)
	if area == "" || statewide.MatchString(area) {
		return "All"
	}
	return strings.TrimSpace(areaSuffix.ReplaceAllString(area, ""))
}

// Convert filters summaries to those with no end date or an end on or after
// asOf and folds rows of the same disaster into one declaration. Rows with
// a missing or unreadable begin date are skipped, as are ended ones.
// Output order follows first appearance in the input.
func Convert(items []Summary, asOf time.Time) ([]model.DisasterDeclaration, int) {
	type key struct {
		number int
		state  string
		start  string
		end    string
	}

	var out []model.DisasterDeclaration
	index := make(map[key]int)
	skipped := 0

	for _, it := range items {
		state := strings.ToUpper(strings.TrimSpace(it.State))
		start, ok := apiDate(it.IncidentBeginDate)
		if state == "" || !ok {
			skipped++
			continue
		}

		var end *time.Time
		if strings.TrimSpace(it.IncidentEndDate) != "" {
			e, ok := apiDate(it.IncidentEndDate)
			if !ok {
				skipped++
				continue
			}
			if window.DaysBetween(asOf, e) > 0 {
				skipped++
				continue
			}
			end = &e
		}

		reason := strings.TrimSpace(it.IncidentType)
		if reason == "" {
			reason = "Disaster"
		}
		county := NormalizeArea(it.DesignatedArea)

		k := key{number: it.DisasterNumber, state: state, start: start.Format(model.DatasetDateLayout)}
		if end != nil {
			k.end = end.Format(model.DatasetDateLayout)
		}
		// Rows without a disaster number are never merged.
		if it.DisasterNumber != 0 {
			if i, ok := index[k]; ok {
				out[i].Counties = appendCounty(out[i].Counties, county)
				continue
			}
			index[k] = len(out)
		}

		out = append(out, model.DisasterDeclaration{
			State:     state,
			Counties:  []string{county},
			Reason:    reason,
			StartDate: start,
			EndDate:   end,
		})
	}
	return out, skipped
}

func appendCounty(counties []string, county string) []string {
	if county == "All" {
		return []string{"All"}
	}
	for _, c := range counties {
		if c == "All" || strings.EqualFold(c, county) {
			return counties
		}
	}
	return append(counties, county)
}

// apiDate reads the date part of an ISO-8601 timestamp.
func apiDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len(model.DatasetDateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(model.DatasetDateLayout, s[:len(model.DatasetDateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WriteDataset writes declarations as indented JSON through a temp file and
// rename, so readers never observe a partial dataset.
func WriteDataset(path string, decls []model.DisasterDeclaration) error {
	if decls == nil {
		decls = []model.DisasterDeclaration{}
	}
	data, err := json.MarshalIndent(decls, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dataset: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dst_list-*.json")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}
