// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"html"
	"math"
	"strings"
)

// WordsPerMinute is the assumed average adult reading speed.
const WordsPerMinute = 225

// EstimateReadTime returns the reading time in whole minutes, at least one,
// or nil when the document has no blocks.
func EstimateReadTime(doc Document) *int {
	if len(doc.Blocks) == 0 {
		return nil
	}

	minutes := int(math.Round(float64(WordCount(doc)) / WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return &minutes
}

// WordCount counts visible words in paragraph, header and quote text and in
// every list item. Markup is stripped before counting.
func WordCount(doc Document) int {
	total := 0
	for _, b := range doc.Blocks {
		switch d := b.Data.(type) {
		case ParagraphData:
			total += countWords(d.Text)
		case HeaderData:
			total += countWords(d.Text)
		case QuoteData:
			total += countWords(d.Text)
		case ListData:
			for _, item := range d.Items {
				total += countWords(item)
			}
		}
	}
	return total
}

func countWords(s string) int {
	if s == "" {
		return 0
	}
	// Break tags apart so "<p>a</p><p>b</p>" counts as two words.
	s = strings.NewReplacer("<", " <", ">", "> ").Replace(s)
	text := html.UnescapeString(textPolicy.Sanitize(s))
	return len(strings.Fields(text))
}
