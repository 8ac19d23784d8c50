// Package render turns Markdown-like CV text into display blocks, HTML
// previews and exported PDF or DOCX documents.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockKind classifies one line of a document.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading1
	Heading2
	ListItem
	Blank
)

var blockKindNames = map[BlockKind]string{
	Paragraph: "paragraph",
	Heading1:  "heading1",
	Heading2:  "heading2",
	ListItem:  "listItem",
	Blank:     "blank",
}

func (k BlockKind) String() string {
	if name, ok := blockKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BlockKind(%d)", int(k))
}

func (k BlockKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *BlockKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range blockKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown block kind %q", name)
}

// Block is a single rendered line. Text excludes the Markdown prefix.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

func (b Block) String() string {
	return b.Kind.String() + "(" + b.Text + ")"
}

// Line re-serializes the block to its source line.
func (b Block) Line() string {
	switch b.Kind {
	case Heading1:
		return "# " + b.Text
	case Heading2:
		return "## " + b.Text
	case ListItem:
		return "- " + b.Text
	case Blank:
		return ""
	default:
		return b.Text
	}
}

// ToBlocks maps each line of s to exactly one block. Lines are split on "\n"
// only, so a trailing "\r" stays part of the text.
func ToBlocks(s string) []Block {
	lines := strings.Split(s, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(line))
	}
	return blocks
}

func classify(line string) Block {
	switch {
	case strings.HasPrefix(line, "# "):
		return Block{Kind: Heading1, Text: line[2:]}
	case strings.HasPrefix(line, "## "):
		return Block{Kind: Heading2, Text: line[3:]}
	case strings.HasPrefix(line, "- "):
		return Block{Kind: ListItem, Text: line[2:]}
	case line == "":
		return Block{Kind: Blank}
	default:
		return Block{Kind: Paragraph, Text: line}
	}
}

// JoinLines is the inverse of ToBlocks.
func JoinLines(blocks []Block) string {
	lines := make([]string, len(blocks))
	for i, b := range blocks {
		lines[i] = b.Line()
	}
	return strings.Join(lines, "\n")
}
