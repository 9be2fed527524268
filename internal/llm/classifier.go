// Package llm classifies papers into ML-security attack categories using an
// OpenAI-compatible chat-completions endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/biecho/mlsec-papers/internal/category"
)

// maxAbstractChars truncates long abstracts before submission; enough context
// for a category decision without burning tokens.
const maxAbstractChars = 2500

const systemPrompt = `You are an expert ML security researcher. Classify the given paper into ONE of the OWASP ML Security Top 10 categories.

Categories:
ML01: Input Manipulation (adversarial examples, evasion attacks, input perturbation, prompt injection)
ML02: Data Poisoning (training data manipulation, backdoor attacks, trojan attacks)
ML03: Model Inversion & Data Reconstruction (privacy attacks, membership inference, attribute inference)
ML04: Model Theft & Extraction (model stealing, architecture extraction, knowledge distillation attacks)
ML05: Data Extraction & Leakage (training data extraction, memorization attacks, PII leakage)
ML06: Supply Chain (model supply chain, pretrained model attacks, model integrity, federated learning attacks)
ML07: Transfer Attacks (cross-domain attacks, transferability of adversarial examples)
ML08: Model Configuration & Deployment (misconfigurations, deployment security, model serving)
ML09: Output Integrity (output manipulation, prediction tampering, deepfakes, AI-generated content detection)
ML10: Model Manipulation & Corruption (weight manipulation, model modification attacks, fine-tuning attacks)
NONE: Not related to ML security (general ML, other security topics, AI FOR security rather than attacks ON ML)

Important distinctions:
- Papers about ATTACKING ML systems -> classify as ML01-ML10
- Papers about DEFENDING ML systems from attacks -> classify based on the attack type they defend against
- Papers about using AI FOR security (malware detection, intrusion detection) -> classify as NONE
- General ML papers without security focus -> classify as NONE

Respond with ONLY the category code (ML01, ML02, ..., ML10, or NONE). No explanation.`

// Result is one classification outcome.
type Result struct {
	Category   category.Category
	Confidence category.Confidence
}

// Classifier submits title + abstract to the configured model and maps the
// response onto the closed category set.
type Classifier struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// Options configures a Classifier.
type Options struct {
	APIKey    string
	BaseURL   string  // empty means the OpenAI default
	Model     string
	RateLimit float64 // requests per second
}

// NewClassifier creates a classifier against an OpenAI-compatible endpoint.
func NewClassifier(opts Options) (*Classifier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("classification provider API key not set")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("classification model not set")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	rps := opts.RateLimit
	if rps <= 0 {
		rps = 1.0
	}

	return &Classifier{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Classify assigns a category to a paper. Papers with an abstract are
// classified at HIGH confidence; title-only papers at LOW. A malformed or
// out-of-vocabulary model response is a data condition, not an error: it maps
// to NONE with LOW confidence. Only transport failures return an error.
func (c *Classifier) Classify(ctx context.Context, title, abstract string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}

	userMessage, confidence := buildPrompt(title, abstract)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		return Result{}, fmt.Errorf("classification request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{Category: category.None, Confidence: category.ConfidenceLow}, nil
	}

	cat, ok := category.Parse(resp.Choices[0].Message.Content)
	if !ok {
		return Result{Category: category.None, Confidence: category.ConfidenceLow}, nil
	}
	return Result{Category: cat, Confidence: confidence}, nil
}

func buildPrompt(title, abstract string) (string, category.Confidence) {
	if abstract == "" {
		msg := fmt.Sprintf("Title: %s\n\n(No abstract available - classify based on title only)", title)
		return msg, category.ConfidenceLow
	}
	if len(abstract) > maxAbstractChars {
		abstract = abstract[:maxAbstractChars]
	}
	msg := fmt.Sprintf("Title: %s\n\nAbstract: %s", title, strings.TrimSpace(abstract))
	return msg, category.ConfidenceHigh
}
