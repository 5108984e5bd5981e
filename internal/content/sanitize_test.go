// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"null", "null"},
		{"string", `"hello"`},
		{"array", `[{"type":"paragraph"}]`},
		{"number", "42"},
		{"broken json", `{"blocks": [`},
		{"blocks not array", `{"blocks": "nope"}`},
		{"no blocks", `{"time": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Sanitize(json.RawMessage(tt.raw))
			assert.NotNil(t, doc.Blocks)
			assert.Empty(t, doc.Blocks)

			out, err := doc.JSON()
			require.NoError(t, err)
			assert.Contains(t, string(out), `"blocks":[]`)
		})
	}
}

func TestSanitize_KeepsMetadataWhenBlocksInvalid(t *testing.T) {
	doc := Sanitize(json.RawMessage(`{"time": 1700000000000, "version": "2.28.0", "blocks": {}}`))

	require.NotNil(t, doc.Time)
	assert.Equal(t, int64(1700000000000), *doc.Time)
	assert.Equal(t, "2.28.0", doc.Version)
	assert.Empty(t, doc.Blocks)
}

func TestSanitize_StripsScriptKeepsFormatting(t *testing.T) {
	raw := `{"blocks":[{"type":"paragraph","data":{"text":"Hello <b>bold</b> <i>it</i> <a href=\"https://x.example\" target=\"_blank\" onclick=\"evil()\">link</a><script>alert(1)</script><img src=x onerror=alert(1)>"}}]}`

	doc := Sanitize(json.RawMessage(raw))
	require.Len(t, doc.Blocks, 1)

	p, ok := doc.Blocks[0].Data.(ParagraphData)
	require.True(t, ok, "expected ParagraphData, got %T", doc.Blocks[0].Data)

	assert.NotContains(t, p.Text, "<script")
	assert.NotContains(t, p.Text, "alert(1)")
	assert.NotContains(t, p.Text, "onclick")
	assert.NotContains(t, p.Text, "<img")
	assert.Contains(t, p.Text, "<b>bold</b>")
	assert.Contains(t, p.Text, "<i>it</i>")
	assert.Contains(t, p.Text, `href="https://x.example"`)
	assert.Contains(t, p.Text, `target="_blank"`)
}

func TestSanitize_RejectsJavascriptURLs(t *testing.T) {
	raw := `{"blocks":[{"type":"paragraph","data":{"text":"<a href=\"javascript:alert(1)\">x</a>"}}]}`

	doc := Sanitize(json.RawMessage(raw))
	p := doc.Blocks[0].Data.(ParagraphData)
	assert.NotContains(t, p.Text, "javascript:")
	assert.Contains(t, p.Text, "x")
}

func TestSanitize_TruncatesTo100Blocks(t *testing.T) {
	blocks := make([]string, 150)
	for i := range blocks {
		blocks[i] = fmt.Sprintf(`{"type":"paragraph","data":{"text":"block %d"}}`, i)
	}
	raw := `{"blocks":[` + strings.Join(blocks, ",") + `]}`

	doc := Sanitize(json.RawMessage(raw))
	require.Len(t, doc.Blocks, MaxBlocks)
	for i, b := range doc.Blocks {
		assert.Equal(t, fmt.Sprintf("block %d", i), b.Data.(ParagraphData).Text)
	}
}

func TestSanitize_BlockTypes(t *testing.T) {
	raw := `{
		"time": 1700000000000,
		"version": "2.28.0",
		"blocks": [
			{"id": "h1", "type": "header", "data": {"text": "Title<style>x</style>", "level": 2}},
			{"type": "header", "data": {"text": "Bad level", "level": 9}},
			{"type": "quote", "data": {"text": "Quote", "caption": "<em>Someone</em><script>x</script>", "alignment": "center"}},
			{"type": "list", "data": {"style": "ordered", "items": ["one <u>1</u>", {"content": "two", "items": [{"content": "two.a", "items": []}]}, 3]}},
			{"type": "list", "data": {"style": "weird", "items": ["x"]}},
			{"type": "image", "data": {"url": "https://cdn.example/a.png", "caption": "<b>cap</b>", "withBorder": true, "withBackground": 0, "stretched": "yes", "extra": "drop me", "file": {"url": "https://cdn.example/a.png", "size": 10}}},
			{"type": "code", "data": {"code": "<script>alert(1)</script>"}},
			{"type": "delimiter", "data": {"anything": 1}},
			{"type": "embed", "data": {"service": "youtube", "html": "<iframe></iframe>"}},
			{"type": "table"},
			"not a block",
			{"data": {"text": "missing type"}}
		]
	}`

	doc := Sanitize(json.RawMessage(raw))
	require.Len(t, doc.Blocks, 10)

	header := doc.Blocks[0]
	assert.Equal(t, "h1", header.ID)
	assert.Equal(t, BlockHeader, header.Type)
	assert.Equal(t, HeaderData{Text: "Title", Level: 2}, header.Data)

	assert.Equal(t, 0, doc.Blocks[1].Data.(HeaderData).Level)

	quote := doc.Blocks[2].Data.(QuoteData)
	assert.Equal(t, "<em>Someone</em>", quote.Caption)
	assert.Equal(t, "center", quote.Alignment)

	list := doc.Blocks[3].Data.(ListData)
	assert.Equal(t, ListOrdered, list.Style)
	assert.Equal(t, []string{"one <u>1</u>", "two", "two.a"}, list.Items)

	assert.Equal(t, ListUnordered, doc.Blocks[4].Data.(ListData).Style)

	img := doc.Blocks[5].Data.(ImageData)
	assert.Equal(t, "https://cdn.example/a.png", img.URL)
	assert.Equal(t, "<b>cap</b>", img.Caption)
	assert.True(t, img.WithBorder)
	assert.False(t, img.WithBackground)
	assert.True(t, img.Stretched)
	require.NotNil(t, img.File)
	assert.Equal(t, "https://cdn.example/a.png", img.File.URL)

	assert.Equal(t, CodeData{Code: "<script>alert(1)</script>"}, doc.Blocks[6].Data)
	assert.Equal(t, DelimiterData{}, doc.Blocks[7].Data)

	embed := doc.Blocks[8]
	assert.Equal(t, BlockType("embed"), embed.Type)
	assert.JSONEq(t, `{"service": "youtube", "html": "<iframe></iframe>"}`, string(embed.Data.(RawData)))

	out, err := doc.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `{"type":"table","data":{}}`)
	assert.NotContains(t, string(out), "drop me")
	assert.NotContains(t, string(out), `"size"`)
}

func TestSanitize_ImageURLLengthCap(t *testing.T) {
	long := "https://cdn.example/" + strings.Repeat("a", 600)
	raw := fmt.Sprintf(`{"blocks":[{"type":"image","data":{"url":%q,"file":{"url":%q}}}]}`, long, long)

	img := Sanitize(json.RawMessage(raw)).Blocks[0].Data.(ImageData)
	assert.Len(t, img.URL, MaxURLLength)
	assert.Len(t, img.File.URL, MaxURLLength)
}

func TestDocumentJSON_KeepsMarkupReadable(t *testing.T) {
	raw := `{"blocks":[{"type":"paragraph","data":{"text":"<b>bold</b> &amp; more"}}]}`

	data, err := Sanitize(json.RawMessage(raw)).JSON()
	require.NoError(t, err)

	assert.Contains(t, string(data), "<b>bold</b>")
	assert.NotContains(t, string(data), `\u003c`)
	assert.False(t, strings.HasSuffix(string(data), "\n"))
	assert.True(t, json.Valid(data))
}

func TestSanitize_Idempotent(t *testing.T) {
	raw := `{"blocks":[{"type":"paragraph","data":{"text":"A <strong>b</strong> &amp; c"}},{"type":"list","data":{"items":["<em>x</em>"]}}]}`

	first, err := Sanitize(json.RawMessage(raw)).JSON()
	require.NoError(t, err)
	second, err := Sanitize(first).JSON()
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"trims whitespace", "  hello  ", 10, "hello"},
		{"strips control chars", "he\x00ll\x07o\x7f", 10, "hello"},
		{"keeps newlines and tabs inside", "a\nb\tc", 10, "a\nb\tc"},
		{"truncates by rune", "héllo wörld", 5, "héllo"},
		{"no limit", strings.Repeat("x", 2000), 0, strings.Repeat("x", 2000)},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeString(tt.in, tt.max))
		})
	}
}
