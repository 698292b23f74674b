package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"deepresearch/internal/llm"
	"deepresearch/internal/logging"
)

// ErrorReportSentinel is what Compose returns when report generation fails.
// Callers display it as-is; composition never surfaces an error value.
const ErrorReportSentinel = "Error generating report"

// learningsCharBudget caps the learnings block fed to report composition.
const learningsCharBudget = 150000

// Composer turns accumulated learnings into the final markdown report.
type Composer struct {
	client llm.Client
}

// NewComposer creates a composer around the given LLM client.
func NewComposer(client llm.Client) *Composer {
	return &Composer{client: client}
}

// Compose writes the final report for topic from the merged learnings and
// appends a deterministic sources section listing every visited URL. On any
// LLM or parse failure it returns the sentinel string, still followed by the
// sources so the run's URLs are never lost.
func (c *Composer) Compose(ctx context.Context, topic string, learnings, visitedURLs []string) string {
	log := logging.Get(logging.CategoryReport)

	var sb strings.Builder
	for _, l := range learnings {
		fmt.Fprintf(&sb, "<learning>\n%s\n</learning>\n", l)
	}
	learningsBlock := trimContent(sb.String(), learningsCharBudget)

	prompt := fmt.Sprintf(
		`Given the following prompt from the user, write a final report on the topic using the learnings from research. Return a JSON object with a "reportMarkdown" field containing the final report in markdown. Make it as detailed as possible, aim for 3 or more pages, include ALL the learnings from research:

<prompt>%s</prompt>

Here are all the learnings from previous research:

<learnings>
%s
</learnings>`,
		topic, learningsBlock)

	body := ErrorReportSentinel
	response, err := c.client.CompleteJSON(ctx, systemPrompt(), prompt)
	if err != nil {
		log.Errorw("report composition failed", "topic", topic, "error", err)
	} else {
		var parsed struct {
			ReportMarkdown string `json:"reportMarkdown"`
		}
		if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &parsed); err != nil || parsed.ReportMarkdown == "" {
			log.Errorw("report composition returned unparseable JSON", "topic", topic, "error", err)
		} else {
			body = parsed.ReportMarkdown
		}
	}

	return body + sourcesSection(visitedURLs)
}

// sourcesSection renders visited URLs as a markdown link list. Deterministic
// given the sorted URL set; empty input produces no section at all.
func sourcesSection(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n\n## Sources\n\n")
	for _, u := range urls {
		fmt.Fprintf(&sb, "- [%s](%s)\n", u, u)
	}
	return sb.String()
}
