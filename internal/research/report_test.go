package research

import (
	"context"
	"strings"
	"testing"
)

func TestComposeIncludesSources(t *testing.T) {
	client := &scriptedClient{report: "# Findings\n\nEverything checks out."}
	composer := NewComposer(client)

	urls := []string{"https://a.example/one", "https://b.example/two"}
	report := composer.Compose(context.Background(), "topic", []string{"a learning"}, urls)

	if !strings.HasPrefix(report, "# Findings") {
		t.Errorf("report body missing: %q", report)
	}
	if !strings.Contains(report, "## Sources") {
		t.Error("report missing sources section")
	}
	for _, u := range urls {
		if !strings.Contains(report, "- ["+u+"]("+u+")") {
			t.Errorf("report missing source link for %s", u)
		}
	}
}

func TestComposeFailureReturnsSentinel(t *testing.T) {
	client := &scriptedClient{failReport: true}
	composer := NewComposer(client)

	report := composer.Compose(context.Background(), "topic",
		[]string{"a learning"}, []string{"https://a.example"})

	if !strings.HasPrefix(report, "Error generating report") {
		t.Errorf("report = %q, want the error sentinel", report)
	}
	// Sources survive even when composition fails.
	if !strings.Contains(report, "https://a.example") {
		t.Error("sources lost on composition failure")
	}
}

func TestComposeNoURLsNoSourcesSection(t *testing.T) {
	client := &scriptedClient{report: "body"}
	composer := NewComposer(client)

	report := composer.Compose(context.Background(), "topic", nil, nil)
	if strings.Contains(report, "## Sources") {
		t.Error("empty URL set should produce no sources section")
	}
}
