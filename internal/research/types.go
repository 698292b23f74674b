// Package research implements the recursive research engine: query
// planning, learning distillation, set-semantic merging of branch results
// and final report composition.
package research

// SerpQuery is one planned search query together with the goal it is meant
// to advance. The goal seeds the follow-up topic when the branch recurses.
type SerpQuery struct {
	Query        string `json:"query"`
	ResearchGoal string `json:"researchGoal"`
}

// Result is the accumulated outcome of a research tree or subtree. Both
// slices behave as sets of exact strings: no duplicates, sorted order.
type Result struct {
	Learnings   []string
	VisitedURLs []string
}

// Learnings extracted from one batch of scraped content, plus the follow-up
// questions that drive the next level of recursion.
type Distilled struct {
	Learnings         []string `json:"learnings"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}
