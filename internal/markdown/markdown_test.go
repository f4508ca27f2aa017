// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains []string
		absent   []string
	}{
		{
			name:     "heading with id",
			source:   "# Hello World",
			contains: []string{`<h1 id="hello-world">Hello World</h1>`},
		},
		{
			name:     "emphasis",
			source:   "some *italic* and **bold**",
			contains: []string{"<em>italic</em>", "<strong>bold</strong>"},
		},
		{
			name:     "gfm table",
			source:   "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "gfm strikethrough",
			source:   "~~gone~~",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "autolink",
			source:   "see https://example.com",
			contains: []string{`<a href="https://example.com">`},
		},
		{
			name:     "typographer dashes",
			source:   "a -- b",
			contains: []string{"&ndash;"},
		},
		{
			name:     "raw html is omitted",
			source:   "<script>alert(1)</script>\n\ntext",
			contains: []string{"<!-- raw HTML omitted -->", "<p>text</p>"},
			absent:   []string{"<script>"},
		},
		{
			name:     "inline html is omitted",
			source:   `click <a href="javascript:x">here</a>`,
			absent:   []string{"javascript:"},
			contains: []string{"here"},
		},
		{
			name:     "fenced code is highlighted",
			source:   "```go\nfunc main() {}\n```",
			contains: []string{"<pre", "func"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.source)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, bad := range tt.absent {
				if strings.Contains(got, bad) {
					t.Errorf("output should not contain %q:\n%s", bad, got)
				}
			}
		})
	}
}

func TestToHTML_Empty(t *testing.T) {
	got, err := ToHTML("")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
