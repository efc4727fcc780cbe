package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/kheld/ragdex/pkg/engine"
	"github.com/kheld/ragdex/pkg/index"
	"github.com/kheld/ragdex/pkg/reader"
	"github.com/kheld/ragdex/pkg/scraper"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type Config struct {
	MaxDepth  int
	RateLimit float64
	ChatMode  string
	Streaming bool
}

// WSServer exposes the index over a WebSocket API. Each connection gets its
// own chat engine so histories do not bleed between clients.
type WSServer struct {
	config Config
	idx    *index.VectorIndex
}

func New(idx *index.VectorIndex, config Config) *WSServer {
	if config.ChatMode == "" {
		config.ChatMode = engine.ChatModeCondenseQuestion
	}
	return &WSServer{
		config: config,
		idx:    idx,
	}
}

// ListenAndServe starts the WebSocket endpoint on addr.
func (s *WSServer) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Printf("Starting WebSocket server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	chatEngine, err := s.idx.AsChatEngine(engine.WithChatMode(s.config.ChatMode))
	if err != nil {
		log.Printf("Failed to create chat engine: %v", err)
		return
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		s.handleMessage(r.Context(), conn, chatEngine, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *websocket.Conn, chatEngine *engine.ChatEngine, msg Message) {
	switch msg.Type {
	case "ingest":
		s.handleIngest(ctx, conn, msg.Content)
	case "reset":
		if err := chatEngine.Reset(ctx); err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Failed to reset: %v", err))
			return
		}
		s.sendMessage(conn, "status", "Chat history cleared")
	default:
		s.handleChat(ctx, conn, chatEngine, msg.Content)
	}
}

func (s *WSServer) handleIngest(ctx context.Context, conn *websocket.Conn, target string) {
	if url := urlRegex.FindString(target); url != "" {
		s.sendMessage(conn, "status", fmt.Sprintf("Scraping %s", url))

		var count int
		sc, err := scraper.NewWithConfig(scraper.ScraperConfig{
			BaseURL:   url,
			MaxDepth:  s.config.MaxDepth,
			RateLimit: s.config.RateLimit,
			OnProgress: func(u string) {
				count++
				s.sendMessage(conn, "progress", fmt.Sprintf("Scraped %d pages", count))
			},
		})
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Failed to initialize scraper: %v", err))
			return
		}

		docs, err := sc.Scrape(ctx, url)
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Failed to scrape URL: %v", err))
			return
		}

		if err := s.idx.InsertDocuments(ctx, docs); err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Failed to index documents: %v", err))
			return
		}
		s.sendMessage(conn, "status", fmt.Sprintf("Indexed %d documents", len(docs)))
		return
	}

	// Not a URL: treat it as a local directory
	r, err := reader.NewWithConfig(reader.ReaderConfig{
		InputDir:      target,
		Recursive:     true,
		ExcludeHidden: true,
		OnProgress: func(path string) {
			s.sendMessage(conn, "progress", fmt.Sprintf("Loading %s", path))
		},
	})
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to open directory: %v", err))
		return
	}

	docs, err := r.LoadData(ctx)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to load documents: %v", err))
		return
	}

	if err := s.idx.InsertDocuments(ctx, docs); err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Failed to index documents: %v", err))
		return
	}
	s.sendMessage(conn, "status", fmt.Sprintf("Indexed %d documents", len(docs)))
}

func (s *WSServer) handleChat(ctx context.Context, conn *websocket.Conn, chatEngine *engine.ChatEngine, query string) {
	if strings.TrimSpace(query) == "" {
		s.sendMessage(conn, "error", "Empty message")
		return
	}

	if s.config.Streaming {
		stream, err := chatEngine.ChatStream(ctx, query)
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
			return
		}

		for chunk := range stream {
			if chunk.Err != nil {
				s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", chunk.Err))
				return
			}
			s.sendMessage(conn, "stream", chunk.Content)
		}
		s.sendMessage(conn, "done", "")
		return
	}

	response, err := chatEngine.Chat(ctx, query)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
		return
	}

	msg := Message{
		Type:    "response",
		Content: response.Answer,
		Data:    response.Sources(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *WSServer) sendMessage(conn *websocket.Conn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
