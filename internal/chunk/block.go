package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// maxBlockLines caps the size of a single fallback chunk.
const maxBlockLines = 60

// BlockChunker is a degraded fallback chunker that splits files on blank-line
// boundaries. It carries no symbol metadata beyond a best-effort first-line
// name. Production deployments wire a language-aware chunker behind the
// Chunker interface instead.
type BlockChunker struct{}

// NewBlockChunker creates the fallback chunker.
func NewBlockChunker() *BlockChunker {
	return &BlockChunker{}
}

// ChunkFile splits content into blank-line separated blocks.
func (c *BlockChunker) ChunkFile(content, filePath string) ([]*Chunk, error) {
	lang := c.DetectLanguage(filePath)
	lines := strings.Split(content, "\n")

	var chunks []*Chunk
	start := 0
	flush := func(end int) {
		block := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(block) == "" {
			return
		}
		chunks = append(chunks, &Chunk{
			ID:        chunkID(filePath, block),
			Content:   block,
			FilePath:  filePath,
			StartLine: start + 1,
			EndLine:   end,
			Type:      "block",
			Language:  lang,
			Metadata:  Metadata{Name: firstIdentifier(block)},
			CreatedAt: time.Now(),
		})
	}

	blank := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
		} else {
			blank = 0
		}
		atBoundary := blank > 0 || i-start >= maxBlockLines
		if atBoundary && i > start {
			flush(i)
			start = i + 1
		}
	}
	if start < len(lines) {
		flush(len(lines))
	}

	return chunks, nil
}

// DetectLanguage maps a file path to a language tag.
func (c *BlockChunker) DetectLanguage(filePath string) string {
	return DetectLanguage(filePath)
}

// chunkID derives a content-addressable chunk id.
func chunkID(filePath, content string) string {
	sum := sha256.Sum256([]byte(filePath + "\x00" + content))
	return hex.EncodeToString(sum[:16])
}

// firstIdentifier extracts a rough name from the first non-empty line.
func firstIdentifier(block string) string {
	for _, line := range strings.Split(block, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		for _, f := range fields {
			trimmed := strings.TrimFunc(f, func(r rune) bool {
				return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
			})
			if trimmed != "" && !isKeyword(trimmed) {
				return trimmed
			}
		}
		return fields[0]
	}
	return ""
}

func isKeyword(s string) bool {
	switch s {
	case "func", "function", "def", "class", "type", "var", "const", "let",
		"public", "private", "static", "async", "export", "import", "package":
		return true
	}
	return false
}

// String implements fmt.Stringer for debugging.
func (c *BlockChunker) String() string {
	return fmt.Sprintf("BlockChunker(maxLines=%d)", maxBlockLines)
}

var _ Chunker = (*BlockChunker)(nil)
