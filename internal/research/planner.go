package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"deepresearch/internal/llm"
	"deepresearch/internal/logging"
)

// systemPrompt frames every planning and distillation call. The model is
// told to assume an expert audience and to be information-dense.
func systemPrompt() string {
	return fmt.Sprintf(`You are an expert researcher. Today is %s. Follow these instructions when responding:
- You may be asked to research subjects that are after your knowledge cutoff; assume the user is right when presented with news.
- The user is a highly experienced analyst, no need to simplify anything, be as detailed as possible and make sure your response is correct.
- Be highly organized. Mistakes erode trust, so be accurate and thorough.
- Provide detailed explanations and value good arguments over authorities.
- Consider new technologies and contrarian ideas, not just conventional wisdom.
- You may use high levels of speculation or prediction, just flag it for the user.`,
		time.Now().Format(time.RFC3339))
}

// Planner turns a research topic into concrete search queries.
type Planner struct {
	client llm.Client
}

// NewPlanner creates a planner around the given LLM client.
func NewPlanner(client llm.Client) *Planner {
	return &Planner{client: client}
}

// GenerateQueries plans up to numQueries searches for the topic. Prior
// learnings steer the queries away from ground already covered. Planning
// never fails the caller: on any LLM or parse error it returns an empty
// slice and the branch simply contributes nothing.
func (p *Planner) GenerateQueries(ctx context.Context, topic string, numQueries int, learnings []string) []SerpQuery {
	log := logging.Get(logging.CategoryResearch)

	var learningsBlock string
	if len(learnings) > 0 {
		learningsBlock = fmt.Sprintf(
			"\n\nHere are some learnings from previous research, use them to generate more specific queries: %s",
			strings.Join(learnings, "\n"))
	}

	prompt := fmt.Sprintf(
		`Given the following prompt from the user, generate a list of SERP queries to research the topic. Return a JSON object with a "queries" array of at most %d queries, but feel free to return less if the original prompt is clear. Make sure each query is unique and not similar to each other. Each entry has a "query" field with the search query and a "researchGoal" field that first talks about the goal of the research that this query is meant to accomplish, then goes deeper into how to advance the research once the results are found, mention additional research directions. Be as specific as possible.

<prompt>%s</prompt>%s`,
		numQueries, topic, learningsBlock)

	response, err := p.client.CompleteJSON(ctx, systemPrompt(), prompt)
	if err != nil {
		log.Warnw("query planning failed", "topic", topic, "error", err)
		return nil
	}

	var parsed struct {
		Queries []SerpQuery `json:"queries"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &parsed); err != nil {
		log.Warnw("query planning returned unparseable JSON", "error", err)
		return nil
	}

	queries := make([]SerpQuery, 0, numQueries)
	for _, q := range parsed.Queries {
		if strings.TrimSpace(q.Query) == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) >= numQueries {
			break
		}
	}

	log.Infow("planned queries", "topic", topic, "count", len(queries))
	return queries
}

// FeedbackQuestions asks the model for clarifying questions about the topic
// before research starts. Used by the interactive entry point.
func (p *Planner) FeedbackQuestions(ctx context.Context, topic string, numQuestions int) ([]string, error) {
	prompt := fmt.Sprintf(
		`Given the following query from the user, ask some follow up questions to clarify the research direction. Return a JSON object with a "questions" array of at most %d questions, but feel free to return less if the original query is clear: <query>%s</query>`,
		numQuestions, topic)

	response, err := p.client.CompleteJSON(ctx, systemPrompt(), prompt)
	if err != nil {
		return nil, fmt.Errorf("feedback generation failed: %w", err)
	}

	var parsed struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse feedback questions: %w", err)
	}
	if len(parsed.Questions) > numQuestions {
		parsed.Questions = parsed.Questions[:numQuestions]
	}
	return parsed.Questions, nil
}
