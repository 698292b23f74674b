package scrape

import (
	"strings"
	"testing"
)

func TestHTMLToMarkdown(t *testing.T) {
	input := `<html><head><script>alert(1)</script><style>body{}</style></head>
<body>
<nav>skip this nav</nav>
<h1>Main Title</h1>
<p>First paragraph with <strong>bold</strong> and <em>italic</em>.</p>
<ul><li>item one</li><li>item two</li></ul>
<pre>code block</pre>
<footer>skip this footer</footer>
</body></html>`

	got, err := HTMLToMarkdown(input, false)
	if err != nil {
		t.Fatalf("HTMLToMarkdown: %v", err)
	}

	for _, want := range []string{
		"# Main Title",
		"**bold**",
		"*italic*",
		"- item one",
		"```",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	for _, skip := range []string{"alert(1)", "body{}", "skip this nav", "skip this footer"} {
		if strings.Contains(got, skip) {
			t.Errorf("output contains skipped content %q", skip)
		}
	}
}

func TestHTMLToMarkdownLinks(t *testing.T) {
	input := `<p>See <a href="https://go.dev">the site</a> and <a href="#frag">a fragment</a>.</p>`

	withLinks, err := HTMLToMarkdown(input, true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(withLinks, "[the site ](https://go.dev)") && !strings.Contains(withLinks, "](https://go.dev)") {
		t.Errorf("link not rendered: %s", withLinks)
	}
	if strings.Contains(withLinks, "](#frag)") {
		t.Errorf("fragment link should not be rendered: %s", withLinks)
	}

	withoutLinks, err := HTMLToMarkdown(input, false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(withoutLinks, "https://go.dev") {
		t.Errorf("URL leaked with links disabled: %s", withoutLinks)
	}
}

func TestHTMLToMarkdownCollapsesWhitespace(t *testing.T) {
	input := "<div>a</div><div></div><div></div><div>b</div>"
	got, err := HTMLToMarkdown(input, false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("runs of blank lines not collapsed:\n%q", got)
	}
}
