// Package scraper fetches Google Patents detail pages and parses them into
// structured sections. Each section parser is independent: a parse miss in
// one section yields an empty result for that section only.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/model"
)

const defaultBaseURL = "https://patents.google.com"

// Getter is the narrow fetch capability the scraper consumes.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Scraper fetches and parses patent pages.
type Scraper struct {
	client  Getter
	baseURL string
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithBaseURL overrides the patent site base URL (tests point it at a
// local server).
func WithBaseURL(u string) Option {
	return func(s *Scraper) { s.baseURL = u }
}

// New creates a Scraper over the given fetch client.
func New(client Getter, opts ...Option) *Scraper {
	s := &Scraper{client: client, baseURL: defaultBaseURL}
	for _, o := range opts {
		o(s)
	}
	return s
}

// FetchByID fetches the detail page for a patent identifier. The English
// variant (/en) is preferred; a not-found response falls back to the bare
// URL. Any other failure class aborts the record: retries are for
// transient errors and belong to the caller.
func (s *Scraper) FetchByID(ctx context.Context, originalID string) (*Page, error) {
	urlID := model.NormalizeID(originalID)
	if urlID == "" {
		return nil, eris.Errorf("scraper: unresolvable patent id %q", originalID)
	}

	baseURL := fmt.Sprintf("%s/patent/%s", s.baseURL, urlID)
	enURL := baseURL + "/en"

	body, err := s.client.Get(ctx, enURL)
	if err == nil {
		return Parse(body, enURL), nil
	}
	if !errors.Is(err, fetcher.ErrNotFound) {
		return nil, err
	}

	zap.L().Debug("english variant not found, trying base url",
		zap.String("patent_id", originalID),
	)
	body, err = s.client.Get(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return Parse(body, baseURL), nil
}

// FetchByURL fetches a detail page at its export result link.
func (s *Scraper) FetchByURL(ctx context.Context, rawURL string) (*Page, error) {
	body, err := s.client.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return Parse(body, rawURL), nil
}
