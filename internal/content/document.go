// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content models the block-structured article body produced by the
// admin editor and provides its sanitizer and read-time estimator.
package content

import (
	"bytes"
	"encoding/json"
)

// MaxBlocks is the maximum number of blocks kept in a document.
const MaxBlocks = 100

// BlockType is the discriminator of a content block.
type BlockType string

// Known block types. Anything else is carried as RawData.
const (
	BlockParagraph BlockType = "paragraph"
	BlockHeader    BlockType = "header"
	BlockList      BlockType = "list"
	BlockQuote     BlockType = "quote"
	BlockImage     BlockType = "image"
	BlockCode      BlockType = "code"
	BlockDelimiter BlockType = "delimiter"
)

// Document is a versioned, ordered sequence of blocks.
type Document struct {
	Time    *int64  `json:"time,omitempty"`
	Version string  `json:"version,omitempty"`
	Blocks  []Block `json:"blocks"`
}

// Empty returns a document with no blocks.
func Empty() Document {
	return Document{Blocks: []Block{}}
}

// Block is one typed element of a document. Data always holds the payload
// type matching Type; unrecognized types hold RawData.
type Block struct {
	ID   string    `json:"id,omitempty"`
	Type BlockType `json:"type"`
	Data BlockData `json:"data"`
}

// BlockData is implemented by every block payload.
type BlockData interface {
	blockType() BlockType
}

// ParagraphData is the payload of a paragraph block.
type ParagraphData struct {
	Text string `json:"text"`
}

// HeaderData is the payload of a header block.
type HeaderData struct {
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
}

// QuoteData is the payload of a quote block.
type QuoteData struct {
	Text      string `json:"text"`
	Caption   string `json:"caption,omitempty"`
	Alignment string `json:"alignment,omitempty"`
}

// List styles.
const (
	ListOrdered   = "ordered"
	ListUnordered = "unordered"
)

// ListData is the payload of a list block.
type ListData struct {
	Style string   `json:"style"`
	Items []string `json:"items"`
}

// ImageFile is the nested file reference of an image block.
type ImageFile struct {
	URL string `json:"url"`
}

// ImageData is the payload of an image block.
type ImageData struct {
	URL            string     `json:"url"`
	Caption        string     `json:"caption"`
	WithBorder     bool       `json:"withBorder"`
	WithBackground bool       `json:"withBackground"`
	Stretched      bool       `json:"stretched"`
	File           *ImageFile `json:"file,omitempty"`
}

// CodeData is the payload of a code block. It is rendered as literal text.
type CodeData struct {
	Code string `json:"code"`
}

// DelimiterData is the empty payload of a delimiter block.
type DelimiterData struct{}

// RawData carries the payload of an unrecognized block type verbatim.
type RawData json.RawMessage

// MarshalJSON implements json.Marshaler.
func (r RawData) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("{}"), nil
	}
	return r, nil
}

func (ParagraphData) blockType() BlockType { return BlockParagraph }
func (HeaderData) blockType() BlockType    { return BlockHeader }
func (QuoteData) blockType() BlockType     { return BlockQuote }
func (ListData) blockType() BlockType      { return BlockList }
func (ImageData) blockType() BlockType     { return BlockImage }
func (CodeData) blockType() BlockType      { return BlockCode }
func (DelimiterData) blockType() BlockType { return BlockDelimiter }
func (RawData) blockType() BlockType       { return "" }

// JSON encodes the document. Sanitized markup is written as-is, without
// the \u003c escaping of json.Marshal.
func (d Document) JSON() ([]byte, error) {
	if d.Blocks == nil {
		d.Blocks = []Block{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
