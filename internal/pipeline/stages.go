package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/edtech-lab/patent-cli/internal/classify"
	"github.com/edtech-lab/patent-cli/internal/model"
	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/internal/scraper"
)

// CollectAnnotator returns a worker factory for the collect stage. Each
// worker owns its own scraper so HTTP clients are not shared across
// goroutines. The annotator fetches the record's result link and fills in
// the abstract; any exception class is retried.
func CollectAnnotator(newScraper func() *scraper.Scraper, retry resilience.RetryConfig) func() AnnotateFunc {
	return func() AnnotateFunc {
		s := newScraper()
		return func(ctx context.Context, rec *model.Patent) error {
			if rec.URL == "" {
				return eris.New("collect: record has no result link")
			}
			cfg := retry
			cfg.ShouldRetry = func(error) bool { return true }
			if cfg.OnRetry == nil {
				cfg.OnRetry = resilience.RetryLogger("collect", "scrape")
			}
			page, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*scraper.Page, error) {
				return s.FetchByURL(ctx, rec.URL)
			})
			if err != nil {
				return eris.Wrapf(err, "collect: scrape %s", rec.URL)
			}
			rec.ID = rec.Key()
			rec.URL = page.URL
			rec.AbstractText = page.Abstract
			return nil
		}
	}
}

// DescribeAnnotator returns the describe-stage annotator: a full detail
// fetch by patent id, retried only for transient failures. A dead page is a
// permanent error and surfaces immediately.
func DescribeAnnotator(s *scraper.Scraper, retry resilience.RetryConfig) AnnotateFunc {
	return func(ctx context.Context, rec *model.Patent) error {
		id := rec.Key()
		if id == "" {
			return eris.New("describe: record has no resolvable identity")
		}
		cfg := retry
		if cfg.OnRetry == nil {
			cfg.OnRetry = resilience.RetryLogger("describe", "fetch")
		}
		page, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*scraper.Page, error) {
			return s.FetchByID(ctx, id)
		})
		if err != nil {
			return eris.Wrapf(err, "describe: fetch %s", id)
		}
		mergeDetails(rec, id, page)
		return nil
	}
}

// mergeDetails copies full-page fields onto the record. Collect-stage fields
// are left alone except the URL, which is upgraded to the canonical page URL.
func mergeDetails(rec *model.Patent, id string, page *scraper.Page) {
	rec.Title = page.Title
	rec.PublicationDate = page.PublicationDate
	rec.Inventors = page.Inventors
	rec.ApplicationNumber = id
	if len(id) >= 2 {
		rec.Country = id[:2]
	}
	rec.Abstract = page.Abstract
	rec.Description = page.Description
	rec.Claims = strings.Join(page.Claims, " ")
	rec.ClassificationNumbers = page.ClassificationNumbers
	rec.ClassificationDescriptions = page.ClassificationDescriptions
	rec.ForwardCites = page.ForwardCites
	rec.BackwardCites = page.BackwardCites
	rec.AllCites = append(append([]string{}, page.ForwardCites...), page.BackwardCites...)
	if page.URL != "" {
		rec.URL = page.URL
	}
}

// ScreenAnnotator judges whether a record's abstract describes teaching
// content. Records without an abstract keep a nil verdict.
func ScreenAnnotator(c *classify.Classifier) AnnotateFunc {
	return func(ctx context.Context, rec *model.Patent) error {
		if strings.TrimSpace(rec.AbstractText) == "" {
			return nil
		}
		v := c.TeachingContent(ctx, rec.AbstractText)
		rec.TeachingContent = &v
		return nil
	}
}

// ClassifyAnnotator assigns a technology class from the record description.
// Failures never surface as errors: the classifier degrades to sentinel
// values so every record is persisted with an explicit outcome, and a
// shutdown mid-run marks the remaining records instead of dropping them.
func ClassifyAnnotator(c *classify.Classifier) AnnotateFunc {
	return func(ctx context.Context, rec *model.Patent) error {
		if ctx.Err() != nil {
			rec.TechnologyClass = classify.ClassShutdown
			rec.Reason = "Shutdown requested"
			return nil
		}
		if strings.TrimSpace(rec.Description) == "" {
			rec.TechnologyClass = classify.ClassNoDescription
			rec.Reason = "No description provided"
			return nil
		}
		res := c.Technology(ctx, rec.Description)
		rec.TechnologyClass = res.TechnologyClass
		rec.Reason = res.Reason
		return nil
	}
}

// CovidAnnotator labels a record covid or non-covid from its description.
// The classifier treats every failure as non-covid, so this never errors
// once admitted.
func CovidAnnotator(c *classify.Classifier) AnnotateFunc {
	return func(ctx context.Context, rec *model.Patent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec.IsCovid = c.Covid(ctx, rec.Description)
		return nil
	}
}

// SeedFromRows converts search-export rows into stage-1 seed records.
func SeedFromRows(rows []model.SearchRow) []*model.Patent {
	out := make([]*model.Patent, 0, len(rows))
	for _, row := range rows {
		out = append(out, &model.Patent{
			OriginalID: row.ID,
			URL:        row.ResultLink,
			CSVTitle:   row.Title,
		})
	}
	return out
}
