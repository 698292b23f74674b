package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"deepresearch/internal/llm"
	"deepresearch/internal/logging"
)

// DefaultContentCharBudget caps each page's text before distillation so the
// prompt stays inside the model's context window.
const DefaultContentCharBudget = 25000

// Distiller extracts learnings and follow-up questions from scraped pages.
type Distiller struct {
	client     llm.Client
	charBudget int
}

// NewDistiller creates a distiller. charBudget <= 0 selects the default.
func NewDistiller(client llm.Client, charBudget int) *Distiller {
	if charBudget <= 0 {
		charBudget = DefaultContentCharBudget
	}
	return &Distiller{client: client, charBudget: charBudget}
}

// Distill condenses the scraped contents for one query into at most
// numLearnings learnings and numFollowUps follow-up questions. Like
// planning, distillation absorbs its own failures: any error yields an
// empty Distilled and the branch continues with what it has.
func (d *Distiller) Distill(ctx context.Context, query string, contents []string, numLearnings, numFollowUps int) Distilled {
	log := logging.Get(logging.CategoryResearch)

	if len(contents) == 0 {
		return Distilled{}
	}

	var sb strings.Builder
	for _, c := range contents {
		c = trimContent(c, d.charBudget)
		if c == "" {
			continue
		}
		fmt.Fprintf(&sb, "<content>\n%s\n</content>\n", c)
	}
	if sb.Len() == 0 {
		return Distilled{}
	}

	prompt := fmt.Sprintf(
		`Given the following contents from a SERP search for the query <query>%s</query>, generate a list of learnings from the contents. Return a JSON object with a "learnings" array of at most %d learnings, but feel free to return less if the contents are clear. Make sure each learning is unique and not similar to each other. The learnings should be concise and to the point, as detailed and information dense as possible. Make sure to include any entities like people, places, companies, products, things, etc in the learnings, as well as any exact metrics, numbers, or dates. The learnings will be used to research the topic further. Also include a "followUpQuestions" array of at most %d follow-up questions to research the topic further.

<contents>%s</contents>`,
		query, numLearnings, numFollowUps, sb.String())

	response, err := d.client.CompleteJSON(ctx, systemPrompt(), prompt)
	if err != nil {
		log.Warnw("distillation failed", "query", query, "error", err)
		return Distilled{}
	}

	var parsed Distilled
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &parsed); err != nil {
		log.Warnw("distillation returned unparseable JSON", "query", query, "error", err)
		return Distilled{}
	}

	if len(parsed.Learnings) > numLearnings {
		parsed.Learnings = parsed.Learnings[:numLearnings]
	}
	if len(parsed.FollowUpQuestions) > numFollowUps {
		parsed.FollowUpQuestions = parsed.FollowUpQuestions[:numFollowUps]
	}

	log.Infow("distilled contents",
		"query", query,
		"learnings", len(parsed.Learnings),
		"followUps", len(parsed.FollowUpQuestions))
	return parsed
}

// trimContent truncates s to at most budget bytes, cutting on a rune
// boundary so the prompt never carries a torn UTF-8 sequence.
func trimContent(s string, budget int) string {
	s = strings.TrimSpace(s)
	if len(s) <= budget {
		return s
	}
	for budget > 0 && !utf8.RuneStart(s[budget]) {
		budget--
	}
	return s[:budget]
}
