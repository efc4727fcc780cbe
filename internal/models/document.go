package models

// Document is a single loaded source: one file from the input directory, or
// one scraped page.
type Document struct {
	ID       string
	Source   string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Node is one chunk of a document, the unit of embedding and retrieval.
// Index is the 0-based position of the chunk within its document.
type Node struct {
	ID        string
	DocID     string
	Source    string
	Title     string
	Text      string
	Index     int
	Embedding []float32
	Metadata  map[string]interface{}
}

// ScoredNode is a node returned from a similarity query. Score is cosine
// similarity, higher is better.
type ScoredNode struct {
	Node
	Score float32
}
