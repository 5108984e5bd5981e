// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Field limits shared by the sanitizer and the article validator.
const (
	MaxURLLength     = 500
	MaxBlockIDLength = 64
)

// htmlPolicy is the allowlist applied to every rich-text field.
var htmlPolicy = newHTMLPolicy()

// textPolicy strips all markup; used for word counting.
var textPolicy = bluemonday.StrictPolicy()

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

func newHTMLPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements(
		"p", "br",
		"strong", "b", "em", "i", "u", "s",
		"code",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre",
	)
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_(blank|self|parent|top)$`)).OnElements("a")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	return p
}

// SanitizeHTML filters s through the rich-text allowlist. Disallowed
// markup is removed; its text content is kept except for script and style.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return htmlPolicy.Sanitize(s)
}

// SanitizeString strips control characters, trims surrounding whitespace and
// truncates to max runes. A max of zero or less disables truncation.
func SanitizeString(s string, max int) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = controlChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return s
}

// rawDocument is the permissive shape used to read untrusted input.
type rawDocument struct {
	Time    json.RawMessage   `json:"time"`
	Version json.RawMessage   `json:"version"`
	Blocks  []json.RawMessage `json:"blocks"`
}

type rawBlock struct {
	ID   json.RawMessage `json:"id"`
	Type json.RawMessage `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Sanitize turns untrusted editor output into a well-formed Document.
// It never fails: input that is not a JSON object, or whose blocks field is
// not an array, yields an empty document. Only the first MaxBlocks blocks
// are considered and entries that are not objects with a string type are
// skipped. Payloads of unrecognized block types pass through unchanged.
func Sanitize(raw json.RawMessage) Document {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Empty()
	}

	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		// Most likely blocks was not an array; keep the metadata if possible.
		var meta struct {
			Time    json.RawMessage `json:"time"`
			Version json.RawMessage `json:"version"`
		}
		if json.Unmarshal(raw, &meta) != nil {
			return Empty()
		}
		rd = rawDocument{Time: meta.Time, Version: meta.Version}
	}

	doc := Empty()
	doc.Time = decodeTime(rd.Time)
	doc.Version = SanitizeString(decodeString(rd.Version), 32)

	blocks := rd.Blocks
	if len(blocks) > MaxBlocks {
		blocks = blocks[:MaxBlocks]
	}
	for _, rb := range blocks {
		block, ok := sanitizeBlock(rb)
		if !ok {
			continue
		}
		doc.Blocks = append(doc.Blocks, block)
	}

	return doc
}

func sanitizeBlock(raw json.RawMessage) (Block, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Block{}, false
	}
	var rb rawBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return Block{}, false
	}

	var typ string
	if err := json.Unmarshal(rb.Type, &typ); err != nil || typ == "" {
		return Block{}, false
	}

	fields := decodeObject(rb.Data)
	block := Block{
		ID:   SanitizeString(decodeString(rb.ID), MaxBlockIDLength),
		Type: BlockType(typ),
	}

	switch block.Type {
	case BlockParagraph:
		block.Data = ParagraphData{Text: SanitizeHTML(fieldString(fields, "text"))}
	case BlockHeader:
		block.Data = HeaderData{
			Text:  SanitizeHTML(fieldString(fields, "text")),
			Level: headerLevel(fields["level"]),
		}
	case BlockQuote:
		block.Data = QuoteData{
			Text:      SanitizeHTML(fieldString(fields, "text")),
			Caption:   SanitizeHTML(fieldString(fields, "caption")),
			Alignment: quoteAlignment(fieldString(fields, "alignment")),
		}
	case BlockList:
		block.Data = sanitizeList(fields)
	case BlockImage:
		block.Data = sanitizeImage(fields)
	case BlockCode:
		block.Data = CodeData{Code: fieldString(fields, "code")}
	case BlockDelimiter:
		block.Data = DelimiterData{}
	default:
		data := bytes.TrimSpace(rb.Data)
		if len(data) == 0 || string(data) == "null" {
			data = []byte("{}")
		}
		block.Data = RawData(data)
	}

	return block, true
}

func sanitizeList(fields map[string]json.RawMessage) ListData {
	style := ListUnordered
	if fieldString(fields, "style") == ListOrdered {
		style = ListOrdered
	}

	var items []json.RawMessage
	_ = json.Unmarshal(fields["items"], &items)

	out := make([]string, 0, len(items))
	for _, item := range flattenListItems(items, 0) {
		out = append(out, SanitizeHTML(item))
	}
	return ListData{Style: style, Items: out}
}

// maxListDepth bounds recursion into nested list items.
const maxListDepth = 8

// flattenListItems collects item text depth-first. Items are plain strings
// or nested objects of the form {"content": "...", "items": [...]}.
func flattenListItems(items []json.RawMessage, depth int) []string {
	var out []string
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s)
			continue
		}
		var nested struct {
			Content string            `json:"content"`
			Items   []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(raw, &nested); err != nil {
			continue
		}
		out = append(out, nested.Content)
		if depth < maxListDepth {
			out = append(out, flattenListItems(nested.Items, depth+1)...)
		}
	}
	return out
}

func sanitizeImage(fields map[string]json.RawMessage) ImageData {
	img := ImageData{
		URL:            SanitizeString(fieldString(fields, "url"), MaxURLLength),
		Caption:        SanitizeHTML(fieldString(fields, "caption")),
		WithBorder:     truthy(fields["withBorder"]),
		WithBackground: truthy(fields["withBackground"]),
		Stretched:      truthy(fields["stretched"]),
	}
	if rawFile, ok := fields["file"]; ok {
		file := decodeObject(rawFile)
		img.File = &ImageFile{URL: SanitizeString(fieldString(file, "url"), MaxURLLength)}
	}
	return img
}

func headerLevel(raw json.RawMessage) int {
	var level float64
	if err := json.Unmarshal(raw, &level); err != nil {
		return 0
	}
	if level < 1 || level > 6 || level != float64(int(level)) {
		return 0
	}
	return int(level)
}

func quoteAlignment(s string) string {
	switch s {
	case "left", "center":
		return s
	}
	return ""
}

// truthy mirrors loose boolean coercion: true, non-zero numbers and
// non-empty strings are true.
func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return false
}

func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}

func fieldString(fields map[string]json.RawMessage, key string) string {
	return decodeString(fields[key])
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeTime(raw json.RawMessage) *int64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return &i
	}
	if f, err := n.Float64(); err == nil {
		i := int64(f)
		return &i
	}
	return nil
}
