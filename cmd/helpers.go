package main

import (
	"github.com/rotisserie/eris"

	"github.com/edtech-lab/patent-cli/internal/classify"
	"github.com/edtech-lab/patent-cli/internal/resilience"
	"github.com/edtech-lab/patent-cli/pkg/anthropic"
)

// newClassifier wires the LLM classifier from config. Every LLM-backed
// command needs an API key; fail before touching any input.
func newClassifier() (*classify.Classifier, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key not set (PATENTS_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key)
	return classify.New(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, resilience.APIRetryConfig()), nil
}
