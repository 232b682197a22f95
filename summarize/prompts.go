package summarize

import (
	"fmt"
	"strings"

	"github.com/poiesic/scholarly/core"
)

const digestPromptTemplate = `# Task: Summarize Recent Papers
Generate a summary of the following recent papers and articles:

Papers:
%s

Guidelines:
- Identify emerging trends
- Note significant breakthroughs
- Consider security implications
- Keep academic but engaging tone
- Focus on practical applications
- Highlight cross-disciplinary connections

Your response should synthesize the key developments and their potential impact.`

const reviewPromptTemplate = `# Task: Review Paper
Analyze and comment on the following paper from the perspective of %s:

Categories: %s
%s

Guidelines:
- Focus on key innovations and their implications
- Connect to fundamental computing/AI principles
- Consider privacy and security aspects
- Maintain scholarly yet accessible tone
- Keep response under %d characters
- Separate multiple statements with a blank line

Your response should be 1-3 sentences that:
1. Highlight the most significant contribution
2. Connect it to broader AI/computing theory
3. Consider practical implications`

func buildDigestPrompt(records []*core.IngestionRecord) string {
	var b strings.Builder
	for i, record := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, record.Content)
		if record.URL != "" && record.Source == core.SourceArxiv {
			fmt.Fprintf(&b, "\nURL: %s", record.URL)
		}
	}
	return fmt.Sprintf(digestPromptTemplate, b.String())
}

func buildReviewPrompt(persona string, maxLength int, record *core.IngestionRecord) string {
	category := string(record.Category)
	if category == "" {
		category = "uncategorized"
	}
	return fmt.Sprintf(reviewPromptTemplate, persona, category, record.Content, maxLength)
}
