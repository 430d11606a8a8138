// Package targetgen builds a crawl-target list from an event calendar.
package targetgen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/racewatch/racewatch/internal/results"
)

// Config drives target generation.
type Config struct {
	// CalendarPath points at the semicolon-delimited event calendar.
	CalendarPath string
	// URLTemplate receives the event number via %s.
	URLTemplate string
	// IDPrefix is prepended to the event number to form the target id.
	IDPrefix     string
	NumberColumn string
	DateColumn   string
	// PrefetchDedup downloads each document up front and drops targets
	// whose bytes match an earlier one.
	PrefetchDedup bool
}

// Stats reports one generation pass.
type Stats struct {
	Generated int
	Skipped   int
	Duplicate int
}

// Generator turns calendar rows into queued crawl targets.
type Generator struct {
	cfg     Config
	store   results.TargetStore
	fetcher results.Fetcher
	hasher  results.Hasher
	clock   results.Clock
	logger  *zap.Logger
}

// New constructs a Generator. fetcher and hasher are only used when
// prefetch dedup is enabled.
func New(
	cfg Config,
	store results.TargetStore,
	fetcher results.Fetcher,
	hasher results.Hasher,
	clock results.Clock,
	logger *zap.Logger,
) (*Generator, error) {
	if cfg.CalendarPath == "" {
		return nil, fmt.Errorf("calendar path is required")
	}
	if !strings.Contains(cfg.URLTemplate, "%s") {
		return nil, fmt.Errorf("url template must contain %%s")
	}
	if cfg.NumberColumn == "" || cfg.DateColumn == "" {
		return nil, fmt.Errorf("number and date column names are required")
	}
	if cfg.PrefetchDedup && (fetcher == nil || hasher == nil) {
		return nil, fmt.Errorf("prefetch dedup requires a fetcher and a hasher")
	}
	return &Generator{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		hasher:  hasher,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Generate reads the calendar and saves the generated target list.
// Rows with an unparseable date are skipped with a warning. The crawl
// window opens on the event date and closes one year later at the end
// of the day, matching the publication pattern of the result lists.
func (g *Generator) Generate(ctx context.Context) (Stats, error) {
	var stats Stats

	rows, header, err := g.readCalendar()
	if err != nil {
		return stats, err
	}
	numberIdx, dateIdx, err := columnIndexes(header, g.cfg.NumberColumn, g.cfg.DateColumn)
	if err != nil {
		return stats, err
	}

	now := g.clock.Now()
	seenHashes := make(map[string]string)
	var targets []results.Target

	for i, row := range rows {
		if len(row) <= numberIdx || len(row) <= dateIdx {
			stats.Skipped++
			g.logger.Warn("skipping short calendar row", zap.Int("row", i+1))
			continue
		}
		number := strings.TrimSpace(row[numberIdx])
		dateStr := strings.TrimSpace(row[dateIdx])

		eventDate, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
		if err != nil {
			stats.Skipped++
			g.logger.Warn("skipping calendar row with invalid date",
				zap.Int("row", i+1),
				zap.String("date", dateStr),
				zap.Error(err),
			)
			continue
		}

		url := fmt.Sprintf(g.cfg.URLTemplate, number)
		if g.cfg.PrefetchDedup {
			duplicate, err := g.isDuplicate(ctx, url, seenHashes)
			if err != nil {
				stats.Skipped++
				g.logger.Warn("skipping unreachable calendar target",
					zap.String("url", url),
					zap.Error(err),
				)
				continue
			}
			if duplicate {
				stats.Duplicate++
				continue
			}
		}

		validFrom := eventDate
		validUntil := eventDate.AddDate(1, 0, 0).
			Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		day := eventDate.Format("2006-01-02")

		targets = append(targets, results.Target{
			ID:     fmt.Sprintf("%s-%s", g.cfg.IDPrefix, number),
			URL:    url,
			Status: results.StatusQueued,
			Event:  &results.EventDates{StartDate: day, EndDate: day},
			Window: results.Window{ValidFrom: &validFrom, ValidUntil: &validUntil},
			Tracking: results.Tracking{
				CreatedAt: now,
				UpdatedAt: now,
			},
		})
	}

	if err := g.store.Save(ctx, targets); err != nil {
		return stats, err
	}
	stats.Generated = len(targets)

	g.logger.Info("crawl targets generated",
		zap.Int("generated", stats.Generated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("duplicates", stats.Duplicate),
	)
	return stats, nil
}

func (g *Generator) readCalendar() ([][]string, []string, error) {
	f, err := os.Open(g.cfg.CalendarPath) // #nosec G304 -- path comes from operator configuration.
	if err != nil {
		return nil, nil, &results.PersistenceError{Op: "read calendar", Err: err}
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, &results.PersistenceError{Op: "read calendar", Err: fmt.Errorf("%s: %w", g.cfg.CalendarPath, err)}
	}
	if len(rows) == 0 {
		return nil, nil, &results.PersistenceError{Op: "read calendar", Err: fmt.Errorf("%s is empty", g.cfg.CalendarPath)}
	}
	return rows[1:], rows[0], nil
}

func columnIndexes(header []string, numberCol, dateCol string) (int, int, error) {
	numberIdx, dateIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case numberCol:
			numberIdx = i
		case dateCol:
			dateIdx = i
		}
	}
	if numberIdx < 0 {
		return 0, 0, fmt.Errorf("calendar is missing column %q", numberCol)
	}
	if dateIdx < 0 {
		return 0, 0, fmt.Errorf("calendar is missing column %q", dateCol)
	}
	return numberIdx, dateIdx, nil
}

func (g *Generator) isDuplicate(ctx context.Context, url string, seen map[string]string) (bool, error) {
	document, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return false, err
	}
	digest, err := g.hasher.Hash(document)
	if err != nil {
		return false, err
	}
	if first, ok := seen[digest]; ok {
		g.logger.Info("dropping duplicate calendar target",
			zap.String("url", url),
			zap.String("same_content_as", first),
		)
		return true, nil
	}
	seen[digest] = url
	return false, nil
}
