// Package classify annotates patent records across the three LLM-backed
// dimensions: education relevance, technology taxonomy, and pandemic
// response. All failures collapse to each stage's default classification at
// this boundary; nothing here aborts a batch.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/pkg/anthropic"
)

// Sentinel values for the taxonomy annotation.
const (
	ClassUnknown       = "Unknown"
	ClassError         = "Error"
	ClassShutdown      = "Shutdown"
	ClassNoDescription = "No Description"
)

// Covid annotation values.
const (
	CovidPositive = "covid"
	CovidNegative = "non-covid"
)

// Classification is the taxonomy result for one patent.
type Classification struct {
	TechnologyClass string `json:"technology_class"`
	Reason          string `json:"reason"`
}

// Classifier runs classification prompts against the LLM with retry.
type Classifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
}

// New creates a Classifier. The retry config follows the API policy
// (attempt-proportional backoff); tests inject a no-op sleeper through it.
func New(client anthropic.Client, model string, maxTokens int64, retry resilience.RetryConfig) *Classifier {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Classifier{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
	}
}

// TeachingContent reports whether the text pertains to the educational
// process. Empty text, exhausted retries, and unparsable responses all
// yield false.
func (c *Classifier) TeachingContent(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	var result struct {
		TeachingContent *bool `json:"teaching_content"`
	}
	if err := c.completeObject(ctx, fmt.Sprintf(teachingPrompt, text), "screen", &result); err != nil {
		zap.L().Warn("teaching-content classification failed", zap.Error(err))
		return false
	}
	if result.TeachingContent == nil {
		zap.L().Warn("response lacks teaching_content key")
		return false
	}
	return *result.TeachingContent
}

// Technology classifies the text against the edtech taxonomy. Empty text
// yields the Unknown default; exhausted retries yield the Error sentinel.
func (c *Classifier) Technology(ctx context.Context, text string) Classification {
	if strings.TrimSpace(text) == "" {
		return Classification{TechnologyClass: ClassUnknown, Reason: "No description provided"}
	}

	var result struct {
		TechnologyClass *string `json:"technology_class"`
		Reason          *string `json:"reason"`
	}
	if err := c.completeObject(ctx, fmt.Sprintf(taxonomyPrompt, text), "classify", &result); err != nil {
		zap.L().Warn("taxonomy classification failed", zap.Error(err))
		return Classification{TechnologyClass: ClassError, Reason: "API call failed"}
	}

	out := Classification{TechnologyClass: "Missing", Reason: "Missing"}
	if result.TechnologyClass != nil {
		out.TechnologyClass = *result.TechnologyClass
	}
	if result.Reason != nil {
		out.Reason = *result.Reason
	}
	return out
}

// Covid reports whether the text describes a pandemic-response teaching
// technology. Every failure path yields the negative value.
func (c *Classifier) Covid(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return CovidNegative
	}

	var result struct {
		IsCovid string `json:"is_covid"`
	}
	if err := c.completeObject(ctx, fmt.Sprintf(covidPrompt, text), "covid", &result); err != nil {
		zap.L().Warn("covid classification failed", zap.Error(err))
		return CovidNegative
	}
	if result.IsCovid == "" {
		zap.L().Warn("response lacks is_covid key")
		return CovidNegative
	}
	return result.IsCovid
}

// completeObject sends one prompt and decodes the (possibly wrapped) JSON
// object response into out. Network errors, non-success responses, and
// parse failures are all retried up to the configured bound.
func (c *Classifier) completeObject(ctx context.Context, prompt, stage string, out any) error {
	cfg := c.retry
	// At this boundary every failure mode is retryable; only context
	// cancellation stops the loop early.
	cfg.ShouldRetry = func(error) bool { return true }
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("classify", stage)
	}

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return err
		}
		resp.Usage.LogCost(c.model, stage)

		raw := resp.Text()
		if strings.TrimSpace(raw) == "" {
			return eris.New("classify: empty response")
		}

		cleaned, err := ExtractJSON(raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(cleaned), out); err != nil {
			return eris.Wrap(err, "classify: decode response object")
		}
		return nil
	})
}
