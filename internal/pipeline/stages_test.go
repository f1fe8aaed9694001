package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edtech-lab/patent-cli/internal/classify"
	"github.com/edtech-lab/patent-cli/internal/fetcher"
	"github.com/edtech-lab/patent-cli/internal/model"
	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/internal/scraper"
	"github.com/edtech-lab/patent-cli/pkg/anthropic"
)

const detailPage = `<html><body>
<section itemprop="abstract"><div itemprop="content">A remote learning system.</div></section>
<section itemprop="description"><div itemprop="content">Students join video lessons.</div></section>
<section itemprop="claims"><claim><div>1. A method of teaching.</div></claim></section>
</body></html>`

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) {},
	}
}

func testScraper(t *testing.T, handler http.HandlerFunc) (*scraper.Scraper, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := fetcher.NewHTTPClient(fetcher.HTTPOptions{})
	return scraper.New(client, scraper.WithBaseURL(srv.URL)), srv
}

func TestCollectAnnotator_FillsAbstract(t *testing.T) {
	s, srv := testScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailPage)) //nolint:errcheck
	})

	annotate := CollectAnnotator(func() *scraper.Scraper { return s }, fastRetry())()
	rec := &model.Patent{OriginalID: "US-111-A", URL: srv.URL + "/patent/US111A/en"}

	require.NoError(t, annotate(context.Background(), rec))
	assert.Equal(t, "US111A", rec.ID)
	assert.Equal(t, "A remote learning system.", rec.AbstractText)
}

func TestCollectAnnotator_RetriesAnyFailure(t *testing.T) {
	var calls atomic.Int32
	s, srv := testScraper(t, func(w http.ResponseWriter, r *http.Request) {
		// a 404 is permanent for describe, but collect retries everything
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(detailPage)) //nolint:errcheck
	})

	annotate := CollectAnnotator(func() *scraper.Scraper { return s }, fastRetry())()
	rec := &model.Patent{OriginalID: "US111A", URL: srv.URL + "/patent/US111A/en"}

	require.NoError(t, annotate(context.Background(), rec))
	assert.Equal(t, int32(3), calls.Load())
}

func TestCollectAnnotator_GivesUpAfterRetries(t *testing.T) {
	s, srv := testScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	annotate := CollectAnnotator(func() *scraper.Scraper { return s }, fastRetry())()
	rec := &model.Patent{OriginalID: "US111A", URL: srv.URL + "/patent/US111A/en"}

	err := annotate(context.Background(), rec)
	require.Error(t, err)
	assert.Empty(t, rec.AbstractText)
}

func TestCollectAnnotator_MissingURL(t *testing.T) {
	annotate := CollectAnnotator(func() *scraper.Scraper { return nil }, fastRetry())()
	err := annotate(context.Background(), &model.Patent{OriginalID: "US111A"})
	require.Error(t, err)
}

func TestDescribeAnnotator_MergesDetails(t *testing.T) {
	s, _ := testScraper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/patent/US111A/en", r.URL.Path)
		w.Write([]byte(detailPage)) //nolint:errcheck
	})

	annotate := DescribeAnnotator(s, fastRetry())
	rec := &model.Patent{OriginalID: "US-111-A"}

	require.NoError(t, annotate(context.Background(), rec))
	assert.Equal(t, "US111A", rec.ApplicationNumber)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, "A remote learning system.", rec.Abstract)
	assert.Equal(t, "Students join video lessons.", rec.Description)
	assert.Equal(t, "1. A method of teaching.", rec.Claims)
}

func TestDescribeAnnotator_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	s, _ := testScraper(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	annotate := DescribeAnnotator(s, fastRetry())
	err := annotate(context.Background(), &model.Patent{OriginalID: "US111A"})
	require.Error(t, err)
	// one attempt for /en, one for the bare variant, no retry loop
	assert.Equal(t, int32(2), calls.Load())
}

func TestDescribeAnnotator_NoIdentity(t *testing.T) {
	annotate := DescribeAnnotator(nil, fastRetry())
	err := annotate(context.Background(), &model.Patent{CSVTitle: "nameless"})
	require.Error(t, err)
}

// stubLLM answers every prompt with the same text.
type stubLLM struct {
	text  string
	calls atomic.Int32
}

func (s *stubLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.calls.Add(1)
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.text}},
	}, nil
}

func TestScreenAnnotator(t *testing.T) {
	llm := &stubLLM{text: `{"teaching_content": true}`}
	annotate := ScreenAnnotator(classify.New(llm, "test-model", 0, fastRetry()))

	rec := &model.Patent{OriginalID: "US1", AbstractText: "A lesson delivery platform."}
	require.NoError(t, annotate(context.Background(), rec))
	require.NotNil(t, rec.TeachingContent)
	assert.True(t, *rec.TeachingContent)

	empty := &model.Patent{OriginalID: "US2"}
	require.NoError(t, annotate(context.Background(), empty))
	assert.Nil(t, empty.TeachingContent, "no abstract, no verdict")
	assert.Equal(t, int32(1), llm.calls.Load())
}

func TestClassifyAnnotator(t *testing.T) {
	llm := &stubLLM{text: `{"technology_class": "hybrid", "reason": "mixes live and recorded"}`}
	annotate := ClassifyAnnotator(classify.New(llm, "test-model", 0, fastRetry()))

	rec := &model.Patent{OriginalID: "US1", Description: "Live plus recorded lessons."}
	require.NoError(t, annotate(context.Background(), rec))
	assert.Equal(t, "hybrid", rec.TechnologyClass)
	assert.Equal(t, "mixes live and recorded", rec.Reason)

	bare := &model.Patent{OriginalID: "US2"}
	require.NoError(t, annotate(context.Background(), bare))
	assert.Equal(t, classify.ClassNoDescription, bare.TechnologyClass)
}

func TestClassifyAnnotator_ShutdownSentinel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &stubLLM{text: `{"technology_class": "hybrid", "reason": "x"}`}
	annotate := ClassifyAnnotator(classify.New(llm, "test-model", 0, fastRetry()))

	rec := &model.Patent{OriginalID: "US1", Description: "has text"}
	require.NoError(t, annotate(ctx, rec))
	assert.Equal(t, classify.ClassShutdown, rec.TechnologyClass)
	assert.Zero(t, llm.calls.Load())
}

func TestCovidAnnotator(t *testing.T) {
	llm := &stubLLM{text: `{"is_covid": "covid"}`}
	annotate := CovidAnnotator(classify.New(llm, "test-model", 0, fastRetry()))

	rec := &model.Patent{OriginalID: "US1", Description: "Contact tracing for classrooms."}
	require.NoError(t, annotate(context.Background(), rec))
	assert.Equal(t, classify.CovidPositive, rec.IsCovid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	held := &model.Patent{OriginalID: "US2", Description: "text"}
	require.Error(t, annotate(ctx, held))
	assert.Empty(t, held.IsCovid)
}

func TestSeedFromRows(t *testing.T) {
	rows := []model.SearchRow{
		{ID: "US-111-A", ResultLink: "https://patents.google.com/patent/US111A/en", Title: "Widget"},
	}
	seeds := SeedFromRows(rows)
	require.Len(t, seeds, 1)
	assert.Equal(t, "US-111-A", seeds[0].OriginalID)
	assert.Equal(t, "Widget", seeds[0].CSVTitle)
	assert.Equal(t, "US111A", seeds[0].Key())
}
