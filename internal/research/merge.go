package research

import "sort"

// Merge combines any number of results with set-union semantics on exact
// strings. The output is deduplicated and sorted, so Merge is associative,
// commutative and idempotent regardless of how branches are joined.
func Merge(results ...Result) Result {
	learnings := make(map[string]struct{})
	urls := make(map[string]struct{})
	for _, r := range results {
		for _, l := range r.Learnings {
			learnings[l] = struct{}{}
		}
		for _, u := range r.VisitedURLs {
			urls[u] = struct{}{}
		}
	}
	return Result{
		Learnings:   sortedKeys(learnings),
		VisitedURLs: sortedKeys(urls),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
