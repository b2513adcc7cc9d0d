// Package chunk defines the chunker collaborator boundary. The language-aware
// chunker itself lives outside this engine; the core only depends on the
// Chunker interface and the Chunk record it produces.
package chunk

import "time"

// Chunk represents a semantically meaningful source fragment with position
// and language metadata. Chunks are immutable once stored, except for
// embedding attachment during ingest.
type Chunk struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	FilePath  string            `json:"filePath"`
	StartLine int               `json:"startLine"` // 1-indexed
	EndLine   int               `json:"endLine"`   // inclusive
	Type      string            `json:"type"`      // function, class, block, ...
	Language  string            `json:"language"`
	Metadata  Metadata          `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`

	// Embedding is attached by the index during ingest and is never
	// persisted with the chunk record.
	Embedding []float32 `json:"-"`
}

// Metadata carries the chunker-extracted symbol details.
type Metadata struct {
	Name      string `json:"name,omitempty"`
	Signature string `json:"signature,omitempty"`
	DocString string `json:"docstring,omitempty"`
	IsAsync   bool   `json:"isAsync,omitempty"`
	IsPublic  bool   `json:"isPublic,omitempty"`
}

// Chunker splits file content into chunks and detects file languages.
// DetectLanguage returns "text" for files that must not be indexed.
type Chunker interface {
	ChunkFile(content, filePath string) ([]*Chunk, error)
	DetectLanguage(filePath string) string
}

// LanguageText is the sentinel language tag meaning "do not index".
const LanguageText = "text"
