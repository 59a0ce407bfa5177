package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title> Sample </title>
<meta name="description" content="A sample page">
</head>
<body>
<header>site header</header>
<h1>Hello</h1>
<p>Some <b>bold</b> text.</p>
<a href="/about#team">About</a>
<a href="https://other.test/x">Other</a>
<a href="mailto:a@b.c">Mail</a>
<a href="javascript:void(0)">JS</a>
<script>alert(1)</script>
</body>
</html>`

func TestSummarize_HTML(t *testing.T) {
	ps, err := Summarize("https://example.com/docs/", samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Sample", ps.Title)
	assert.Equal(t, "A sample page", ps.Description)
	assert.Equal(t, []string{"https://example.com/about", "https://other.test/x"}, ps.Links)
	assert.Contains(t, ps.Text, "# Hello")
	assert.Contains(t, ps.Text, "**bold**")
	assert.NotContains(t, ps.Text, "alert(1)")
	assert.NotContains(t, ps.Text, "site header")
}

func TestSummarize_PlainText(t *testing.T) {
	ps, err := Summarize("https://example.com/robots.txt", "User-agent: *\n")
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\n", ps.Text)
	assert.Empty(t, ps.Title)
	assert.Empty(t, ps.Links)
}

func TestPageSummary_Markdown(t *testing.T) {
	ps, err := Summarize("https://example.com/docs/", samplePage)
	require.NoError(t, err)

	md := ps.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Sample\n\nSource: <https://example.com/docs/>\n\n> A sample page\n\n"), md)
	assert.Contains(t, md, "**bold**")
	assert.True(t, strings.HasSuffix(md, "## Links\n\n1. <https://example.com/about>\n2. <https://other.test/x>\n"), md)
}

func TestPageSummary_MarkdownPlainText(t *testing.T) {
	ps, err := Summarize("", "just text")
	require.NoError(t, err)
	assert.Equal(t, "just text\n", ps.Markdown())
}
