package reconcile

import "strings"

// BlockKind classifies one markdown block.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockList
	BlockCode
	BlockImage
	BlockTable
	BlockBlank
)

// Block is one typed region of the document. Positional algorithms operate
// on blocks rather than raw lines so that headings, code, and tables are
// never mutated by prose rewrites.
type Block struct {
	Kind  BlockKind
	Level int // Heading level, 0 otherwise
	Lines []string
}

// Text returns the block's content joined back into lines.
func (b Block) Text() string {
	return strings.Join(b.Lines, "\n")
}

// HeadingText returns a heading block's text without its marker.
func (b Block) HeadingText() string {
	if b.Kind != BlockHeading || len(b.Lines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimLeft(b.Lines[0], "# "))
}

// ParseBlocks splits a markdown document into typed blocks.
func ParseBlocks(doc string) []Block {
	var blocks []Block
	var current *Block

	flush := func() {
		if current != nil && len(current.Lines) > 0 {
			blocks = append(blocks, *current)
		}
		current = nil
	}

	inCode := false
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCode {
				current.Lines = append(current.Lines, line)
				flush()
				inCode = false
			} else {
				flush()
				inCode = true
				current = &Block{Kind: BlockCode, Lines: []string{line}}
			}
			continue
		}
		if inCode {
			current.Lines = append(current.Lines, line)
			continue
		}

		switch {
		case trimmed == "":
			flush()
			blocks = append(blocks, Block{Kind: BlockBlank, Lines: []string{""}})
		case strings.HasPrefix(trimmed, "#"):
			flush()
			blocks = append(blocks, Block{Kind: BlockHeading, Level: headingLevel(trimmed), Lines: []string{line}})
		case strings.HasPrefix(trimmed, "!["):
			flush()
			blocks = append(blocks, Block{Kind: BlockImage, Lines: []string{line}})
		case strings.HasPrefix(trimmed, "|"):
			if current == nil || current.Kind != BlockTable {
				flush()
				current = &Block{Kind: BlockTable}
			}
			current.Lines = append(current.Lines, line)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || startsWithOrderedMarker(trimmed):
			if current == nil || current.Kind != BlockList {
				flush()
				current = &Block{Kind: BlockList}
			}
			current.Lines = append(current.Lines, line)
		default:
			if current == nil || current.Kind != BlockParagraph {
				flush()
				current = &Block{Kind: BlockParagraph}
			}
			current.Lines = append(current.Lines, line)
		}
	}
	flush()

	return blocks
}

// RenderBlocks joins blocks back into a document.
func RenderBlocks(blocks []Block) string {
	var lines []string
	for _, b := range blocks {
		lines = append(lines, b.Lines...)
	}
	return strings.Join(lines, "\n")
}

func headingLevel(line string) int {
	level := 0
	for _, r := range line {
		if r != '#' {
			break
		}
		level++
	}
	return level
}

func startsWithOrderedMarker(line string) bool {
	if len(line) < 3 {
		return false
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' '
}
