package research

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMergeDeduplicatesAndSorts(t *testing.T) {
	a := Result{
		Learnings:   []string{"go is fast", "go is fast", "rust is safe"},
		VisitedURLs: []string{"https://b.example", "https://a.example"},
	}
	got := Merge(a)
	want := Result{
		Learnings:   []string{"go is fast", "rust is safe"},
		VisitedURLs: []string{"https://a.example", "https://b.example"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIdempotent(t *testing.T) {
	a := Result{
		Learnings:   []string{"x", "y"},
		VisitedURLs: []string{"https://a.example"},
	}
	once := Merge(a)
	twice := Merge(once, once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("merging a result with itself changed it (-once +twice):\n%s", diff)
	}
}

func TestMergeOrderInvariant(t *testing.T) {
	a := Result{Learnings: []string{"a1", "shared"}, VisitedURLs: []string{"https://a.example"}}
	b := Result{Learnings: []string{"b1", "shared"}, VisitedURLs: []string{"https://b.example"}}
	c := Result{Learnings: []string{"c1"}, VisitedURLs: []string{"https://a.example"}}

	abc := Merge(a, b, c)
	cba := Merge(c, b, a)
	nested := Merge(Merge(a, b), c)

	if diff := cmp.Diff(abc, cba); diff != "" {
		t.Errorf("merge not commutative (-abc +cba):\n%s", diff)
	}
	if diff := cmp.Diff(abc, nested); diff != "" {
		t.Errorf("merge not associative (-flat +nested):\n%s", diff)
	}
}

func TestMergeEmpty(t *testing.T) {
	got := Merge()
	if len(got.Learnings) != 0 || len(got.VisitedURLs) != 0 {
		t.Errorf("Merge() = %+v, want empty result", got)
	}

	got = Merge(Result{}, Result{Learnings: []string{"only"}})
	want := Result{Learnings: []string{"only"}, VisitedURLs: []string{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge with zero value (-want +got):\n%s", diff)
	}
}
