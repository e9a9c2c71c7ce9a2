package material

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/trezcool/masomo-records/core"
)

const (
	DefaultModel   = "gemma-3-27b-it"
	DefaultTimeout = 60 * time.Second

	// MaxInputChars caps the document text sent to the model.
	MaxInputChars = 15000

	promptTmpl = "Please provide a concise summary (around 150-200 words), " +
		"do not include preamble like 'here is your summary' for the following document content:\n\n%s"
)

// Safety categories and thresholds, named the way the generative service names them.
const (
	HarmHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmSexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
)

var (
	// DefaultParams are the sampling parameters used for every summary.
	DefaultParams = GenerationParams{
		Temperature:     0.3,
		TopP:            1.0,
		TopK:            32,
		MaxOutputTokens: 300,
	}

	DefaultSafety = []SafetySetting{
		{Category: HarmHarassment, Threshold: BlockMediumAndAbove},
		{Category: HarmHateSpeech, Threshold: BlockMediumAndAbove},
		{Category: HarmSexuallyExplicit, Threshold: BlockMediumAndAbove},
		{Category: HarmDangerousContent, Threshold: BlockMediumAndAbove},
	}
)

type (
	GenerationParams struct {
		Temperature     float32
		TopP            float32
		TopK            float32
		MaxOutputTokens int32
	}

	SafetySetting struct {
		Category  string
		Threshold string
	}

	// Request is one call to the generative service.
	Request struct {
		Model  string
		APIKey string
		Prompt string
		Params GenerationParams
		Safety []SafetySetting
	}

	// Generator is a thin adapter over a generative-AI service.
	// Errors are transport or service errors; content outcomes are described by the Reply.
	Generator interface {
		Generate(ctx context.Context, req Request) (Reply, error)
	}

	// TextSummarizer turns document text into a summary.
	TextSummarizer interface {
		Summarize(ctx context.Context, text string) (string, error)
	}
)

// ReplyKind tells which shape of answer the service gave.
type ReplyKind int

const (
	ReplyEmpty     ReplyKind = iota
	ReplyBlocked             // prompt rejected by the safety filters
	ReplyParts               // single candidate with text parts
	ReplyText                // aggregate text accessor
	ReplyCandidate           // text found in the first candidate holding any
)

// Reply is the service answer, reduced to what summarizing needs.
type Reply struct {
	Kind          ReplyKind
	Parts         []string
	Text          string
	BlockReason   string
	SafetyRatings []string
}

// ErrorKind classifies summarization failures.
type ErrorKind int

const (
	MissingCredentials ErrorKind = iota + 1
	EmptyInput
	ContentBlocked
	UnextractableResponse
	ServiceError
)

// SummaryError is a summarization failure. Its message is meant to be shown to users
// and stored in place of a summary.
type SummaryError struct {
	Kind          ErrorKind
	BlockReason   string
	SafetyRatings []string
	Err           error
}

func (e *SummaryError) Error() string {
	switch e.Kind {
	case MissingCredentials:
		return "Error: Google API key not configured. Please set it in your environment variables."
	case EmptyInput:
		return "Error: No text to summarize."
	case ContentBlocked:
		msg := fmt.Sprintf("Error: Content generation blocked. Reason: %s.", e.BlockReason)
		if len(e.SafetyRatings) > 0 {
			msg += " Safety Ratings: " + strings.Join(e.SafetyRatings, ", ")
		}
		return msg
	case UnextractableResponse:
		return "Error: Could not extract summary from Google AI response."
	default:
		cause := "unknown error"
		if e.Err != nil {
			cause = e.Err.Error()
		}
		return "Error: An issue occurred while generating the summary with Google AI: " + cause
	}
}

func (e *SummaryError) Unwrap() error { return e.Err }

type Summarizer struct {
	gen     Generator
	model   string
	apiKey  string
	timeout time.Duration
	logger  core.Logger
}

var _ TextSummarizer = (*Summarizer)(nil)

// NewSummarizer returns a Summarizer calling model through gen.
// An empty model or a zero timeout fall back to DefaultModel and DefaultTimeout.
func NewSummarizer(gen Generator, model, apiKey string, timeout time.Duration, logger core.Logger) *Summarizer {
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Summarizer{gen: gen, model: model, apiKey: apiKey, timeout: timeout, logger: logger}
}

// Summarize asks the model for a short summary of text.
// Every failure is a *SummaryError.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if s.apiKey == "" {
		s.logger.Error("summarizing: google api key not configured")
		return "", &SummaryError{Kind: MissingCredentials}
	}
	if text == "" {
		return "", &SummaryError{Kind: EmptyInput}
	}

	if n := utf8.RuneCountInString(text); n > MaxInputChars {
		s.logger.Warn("truncating text for summarization", "chars", n, "max", MaxInputChars)
		text = string([]rune(text)[:MaxInputChars])
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reply, err := s.gen.Generate(ctx, Request{
		Model:  s.model,
		APIKey: s.apiKey,
		Prompt: fmt.Sprintf(promptTmpl, text),
		Params: DefaultParams,
		Safety: DefaultSafety,
	})
	if err != nil {
		s.logger.Error("generating summary", "model", s.model, "error", err)
		return "", &SummaryError{Kind: ServiceError, Err: err}
	}

	var summary string
	switch reply.Kind {
	case ReplyBlocked:
		s.logger.Error("summary blocked", "reason", reply.BlockReason, "ratings", reply.SafetyRatings)
		return "", &SummaryError{Kind: ContentBlocked, BlockReason: reply.BlockReason, SafetyRatings: reply.SafetyRatings}
	case ReplyParts, ReplyCandidate:
		summary = strings.Join(reply.Parts, "")
	case ReplyText:
		summary = reply.Text
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		s.logger.Error("no summary in model response", "model", s.model)
		return "", &SummaryError{Kind: UnextractableResponse}
	}
	return summary, nil
}
