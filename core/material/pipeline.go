package material

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-records/core"
)

const (
	msgFileNotFound     = "Error: PDF file not found for summarization."
	msgExtractionFailed = "Error: Failed to extract text from PDF."
)

// Outcome is the result of summarizing a stored material.
// Summary is null when there is nothing to summarize; OK is false when Summary holds an error message.
type Outcome struct {
	Summary null.String
	OK      bool
}

// Pipeline derives a summary from stored PDF material: locate, extract, summarize.
// It never fails outright: problems are reported in the Outcome.
type Pipeline struct {
	store      *Store
	extractor  Extractor
	summarizer TextSummarizer
	logger     core.Logger
}

func NewPipeline(store *Store, extractor Extractor, summarizer TextSummarizer, logger core.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Summarize produces the summary outcome for the stored file name.
// Material that is not a PDF yields a null summary and OK.
func (p *Pipeline) Summarize(ctx context.Context, storedName string) Outcome {
	if storedName == "" || !IsPDF(storedName) {
		return Outcome{OK: true}
	}

	if !p.store.Exists(storedName) {
		p.logger.Error("pdf material not found for summarization", "path", storedName)
		return Outcome{Summary: null.StringFrom(msgFileNotFound)}
	}

	text, ok := p.extractor.Extract(storedName)
	if !ok {
		return Outcome{Summary: null.StringFrom(msgExtractionFailed)}
	}

	summary, err := p.summarizer.Summarize(ctx, text)
	if err != nil {
		return Outcome{Summary: null.StringFrom(err.Error())}
	}
	p.logger.Info("material summarized", "path", storedName)
	return Outcome{Summary: null.StringFrom(summary), OK: true}
}
