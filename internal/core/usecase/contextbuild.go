package usecase

import (
	"fmt"
	"strings"

	"github.com/akorchagin/policy-rag/internal/core/domain"
)

const (
	defaultPromptExcerptChars  = 800
	defaultDisplayExcerptChars = 280
)

// AssembledContext pairs the numbered context block sent to the model with
// the source descriptors returned to the caller. Item i in Sources is the
// text labelled [i+1] in Prompt; answers cite by that number.
type AssembledContext struct {
	Prompt  string
	Sources []domain.Source
}

type ContextAssembler struct {
	promptChars  int
	displayChars int
}

func NewContextAssembler(promptChars, displayChars int) *ContextAssembler {
	if promptChars <= 0 {
		promptChars = defaultPromptExcerptChars
	}
	if displayChars <= 0 {
		displayChars = defaultDisplayExcerptChars
	}
	return &ContextAssembler{
		promptChars:  promptChars,
		displayChars: displayChars,
	}
}

func (a *ContextAssembler) Assemble(chunks []domain.RetrievedChunk) AssembledContext {
	var builder strings.Builder
	sources := make([]domain.Source, 0, len(chunks))

	for idx, chunk := range chunks {
		var score float64
		if chunk.Score != nil {
			score = *chunk.Score
		}
		fmt.Fprintf(&builder, "[%d] url=%s type=%s score=%.3f\n%s\n\n",
			idx+1,
			chunk.URL,
			chunk.DocType,
			score,
			truncateRunes(chunk.Text, a.promptChars),
		)
		sources = append(sources, domain.Source{
			URL:     chunk.URL,
			DocType: chunk.DocType,
			Score:   score,
			Excerpt: truncateRunes(chunk.Text, a.displayChars),
		})
	}

	return AssembledContext{
		Prompt:  builder.String(),
		Sources: sources,
	}
}

// truncateRunes cuts on rune boundaries so multi-byte text never ends in a
// broken sequence.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
