package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kheld/ragdex/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	ModeSentence = "sentence"
	ModeToken    = "token"
)

type SplitterConfig struct {
	Mode           string
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

// Splitter turns documents into chunks. The sentence mode packs whole
// sentences into chunks of up to ChunkSize characters with ChunkOverlap
// characters carried between neighbours; the token mode delegates to the
// langchaingo token splitter.
type Splitter struct {
	config SplitterConfig
}

func NewWithConfig(config SplitterConfig) (Splitter, error) {
	if config.Mode == "" {
		config.Mode = ModeSentence
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = 1024
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 100
	}

	if config.Mode != ModeSentence && config.Mode != ModeToken {
		return Splitter{}, fmt.Errorf("unknown splitter mode: %s", config.Mode)
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return Splitter{}, fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			config.ChunkOverlap, config.ChunkSize)
	}

	return Splitter{config: config}, nil
}

func New() Splitter {
	s, _ := NewWithConfig(SplitterConfig{})
	return s
}

// SplitDocuments splits each document into nodes. Nodes inherit the document
// metadata and carry a dense 0-based chunk index.
func (s *Splitter) SplitDocuments(docs []models.Document) ([]models.Node, error) {
	var nodes []models.Node

	for _, doc := range docs {
		chunks, err := s.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.Source, err)
		}

		for i, chunk := range chunks {
			metadata := make(map[string]interface{}, len(doc.Metadata)+2)
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			metadata["chunk_index"] = i
			metadata["total_chunks"] = len(chunks)

			nodes = append(nodes, models.Node{
				ID:       uuid.NewString(),
				DocID:    doc.ID,
				Source:   doc.Source,
				Title:    doc.Title,
				Text:     chunk,
				Index:    i,
				Metadata: metadata,
			})
		}
	}

	return nodes, nil
}

func (s *Splitter) SplitText(text string) ([]string, error) {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil, nil
	}

	if s.config.Mode == ModeToken {
		ts := textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(s.config.ChunkSize),
			textsplitter.WithChunkOverlap(s.config.ChunkOverlap),
		)
		return ts.SplitText(text)
	}

	return s.splitSentences(text), nil
}

func (s *Splitter) splitSentences(text string) []string {
	sentences := splitIntoSentences(text)

	var chunks []string
	currentChunk := strings.Builder{}

	for _, sentence := range sentences {
		if currentChunk.Len() > 0 && currentChunk.Len()+len(sentence) > s.config.ChunkSize {
			if currentChunk.Len() >= s.config.MinChunkLength {
				chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			}

			// Carry the tail of the previous chunk into the next one,
			// backing off to a rune boundary so the cut never splits a
			// multi-byte character
			if s.config.ChunkOverlap > 0 && currentChunk.Len() > s.config.ChunkOverlap {
				tail := currentChunk.String()
				cut := len(tail) - s.config.ChunkOverlap
				for cut < len(tail) && !utf8.RuneStart(tail[cut]) {
					cut++
				}
				tail = tail[cut:]
				currentChunk.Reset()
				currentChunk.WriteString(tail)
			} else {
				currentChunk.Reset()
			}
		}

		currentChunk.WriteString(sentence)
		currentChunk.WriteString(" ")
	}

	remainder := strings.TrimSpace(currentChunk.String())
	if len(remainder) >= s.config.MinChunkLength {
		chunks = append(chunks, remainder)
	} else if len(chunks) == 0 && remainder != "" {
		// Short documents still produce one node
		chunks = append(chunks, remainder)
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		for _, ender := range sentenceEnders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
