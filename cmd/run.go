package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/kheld/ragdex/internal/types"
	"github.com/kheld/ragdex/pkg/agent"
	"github.com/kheld/ragdex/pkg/engine"
	"github.com/kheld/ragdex/pkg/index"
	"github.com/kheld/ragdex/pkg/llm"
	"github.com/kheld/ragdex/pkg/reader"
	"github.com/kheld/ragdex/pkg/scraper"
	"github.com/kheld/ragdex/pkg/splitter"
	"github.com/kheld/ragdex/pkg/store"
	"github.com/kheld/ragdex/server"
	"github.com/tmc/langchaingo/llms"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

func run(config Config) error {
	ctx := context.Background()

	providerCfg := llm.ProviderConfig{
		Provider:    config.Provider,
		BaseURL:     config.BaseURL,
		APIKey:      config.APIKey,
		Model:       config.Model,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	}

	model, err := llm.NewModel(providerCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %v", err)
	}

	if config.AgentMode {
		return runAgent(ctx, model)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: config.Provider,
		Model:    config.EmbedModel,
		BaseURL:  config.BaseURL,
		APIKey:   config.APIKey,
		Dim:      config.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	vectorStore, memStore, err := openStore(ctx, config, embedder.Dimension())
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	sp, err := splitter.NewWithConfig(splitter.SplitterConfig{
		Mode:         config.SplitMode,
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize splitter: %v", err)
	}

	idx, err := index.New(
		index.WithStore(vectorStore),
		index.WithEmbedder(embedder),
		index.WithSplitter(&sp),
		index.WithLLM(model),
		index.WithTopK(config.TopK),
		index.WithCallOptions(providerCfg.CallOptions()...),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize index: %v", err)
	}

	if config.IngestDir != "" {
		if _, err := os.Stat(config.IngestDir); err == nil {
			if err := ingestDirectory(ctx, idx, config.IngestDir); err != nil {
				color.Red("Failed to ingest %s: %v\n", config.IngestDir, err)
			}
		}
	}

	if config.DocsURL != "" {
		if err := ingestURL(ctx, idx, config, config.DocsURL); err != nil {
			color.Red("Failed to ingest %s: %v\n", config.DocsURL, err)
		}
	}

	if config.ServeAddr != "" {
		ws := server.New(idx, server.Config{
			MaxDepth:  config.MaxDepth,
			RateLimit: config.RateLimit,
			ChatMode:  config.ChatMode,
			Streaming: config.Streaming,
		})
		return ws.ListenAndServe(config.ServeAddr)
	}

	chatEngine, err := idx.AsChatEngine(engine.WithChatMode(config.ChatMode))
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %v", err)
	}

	// Interactive chat loop with colored output
	color.Cyan("\nChat with your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := scanner.Text()
		if strings.ToLower(query) == "exit" {
			break
		}

		// A pasted URL triggers a scrape-and-ingest pass
		if url := urlRegex.FindString(query); url != "" {
			color.Blue("\nDetected URL: %s", url)
			if err := ingestURL(ctx, idx, config, url); err != nil {
				color.Red("Failed to ingest URL: %v\n", err)
				continue
			}

			if strings.TrimSpace(query) == url {
				continue
			}
		}

		if config.Streaming {
			stream, err := chatEngine.ChatStream(ctx, query)
			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}

			fmt.Print("\n")
			assistantPrompt("Assistant: ")

			responseSpinner := getSpinner(" Thinking...")
			firstChunk := true

			for chunk := range stream {
				if chunk.Err != nil {
					responseSpinner.Finish()
					color.Red("\nError: %v", chunk.Err)
					break
				}

				if firstChunk {
					responseSpinner.Finish()
					firstChunk = false
					fmt.Println()
				}

				fmt.Print(chunk.Content)
			}

			if firstChunk {
				responseSpinner.Finish()
			}
			fmt.Print("\n")
		} else {
			responseSpinner := getSpinner(" Generating response...")
			response, err := chatEngine.Chat(ctx, query)
			responseSpinner.Finish()

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("\nAssistant: %s\n", response.Answer)
			if sources := response.Sources(); len(sources) > 0 {
				color.Blue("Sources:\n%s\n", strings.Join(sources, "\n"))
			}
		}
	}

	if memStore != nil && config.PersistPath != "" {
		if err := memStore.Persist(config.PersistPath); err != nil {
			return fmt.Errorf("failed to persist store: %v", err)
		}
		color.Green("✓ Store persisted to %s\n", config.PersistPath)
	}

	return nil
}

// openStore selects pgvector when a database URL is configured and falls back
// to the in-memory store, reloading a previous snapshot when one exists.
func openStore(ctx context.Context, config Config, dim int) (types.VectorStore, *store.MemoryStore, error) {
	if config.DBUrl != "" {
		pg, err := store.NewPGVectorStore(ctx, store.PGVectorConfig{
			ConnString: config.DBUrl,
			TableName:  config.TableName,
			VectorDim:  dim,
			BatchSize:  config.BatchSize,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize vector store: %v", err)
		}
		return pg, nil, nil
	}

	if config.PersistPath != "" {
		if _, err := os.Stat(config.PersistPath); err == nil {
			mem, err := store.OpenMemoryStore(config.PersistPath)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open persisted store: %v", err)
			}
			color.Green("✓ Loaded persisted store from %s\n", config.PersistPath)
			return mem, mem, nil
		}
	}

	mem := store.NewMemoryStore()
	return mem, mem, nil
}

func ingestDirectory(ctx context.Context, idx *index.VectorIndex, dir string) error {
	var loadCount int32
	r, err := reader.NewWithConfig(reader.ReaderConfig{
		InputDir:      dir,
		Recursive:     true,
		ExcludeHidden: true,
		OnProgress: func(path string) {
			atomic.AddInt32(&loadCount, 1)
		},
	})
	if err != nil {
		return err
	}

	loadingBar := getProgressBar(-1, " Loading documents...")
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			loadingBar.Set(int(atomic.LoadInt32(&loadCount)))
			time.Sleep(100 * time.Millisecond)
		}
	}()

	docs, err := r.LoadData(ctx)
	close(done)
	loadingBar.Finish()
	if err != nil {
		return err
	}
	color.Green("✓ Loaded %d documents from %s\n", len(docs), dir)

	indexingBar := getProgressBar(len(docs), " Chunking and embedding")
	for _, doc := range docs {
		if err := idx.Insert(ctx, doc); err != nil {
			color.Red("Failed to index document %s: %v\n", doc.Source, err)
			continue
		}
		indexingBar.Add(1)
	}
	indexingBar.Finish()

	if count, err := idx.Count(ctx); err == nil {
		color.Green("✓ Index now holds %d chunks\n", count)
	}
	return nil
}

func ingestURL(ctx context.Context, idx *index.VectorIndex, config Config, url string) error {
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	var scrapeCount int32
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:   url,
		MaxDepth:  config.MaxDepth,
		RateLimit: config.RateLimit,
		OnProgress: func(url string) {
			atomic.AddInt32(&scrapeCount, 1)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %v", err)
	}

	scrapingBar := getProgressBar(-1, " Scraping documentation...")
	startTime := time.Now()
	done := make(chan struct{})
	go func() {
		var lastCount int32
		for {
			select {
			case <-done:
				return
			default:
			}
			count := atomic.LoadInt32(&scrapeCount)
			scrapingBar.Set(int(count))

			if count > lastCount {
				elapsed := time.Since(startTime).Seconds()
				rate := float64(count) / elapsed
				scrapingBar.Describe(color.BlueString(
					"Scraping documentation (%.1f pages/sec)", rate))
			}
			lastCount = count
			time.Sleep(100 * time.Millisecond)
		}
	}()

	docs, err := s.Scrape(ctx, url)
	close(done)
	scrapingBar.Finish()
	if err != nil {
		return fmt.Errorf("failed to scrape URL: %v", err)
	}
	color.Green("✓ Scraped %d documents\n", len(docs))

	indexingBar := getProgressBar(len(docs), " Chunking and embedding")
	for _, doc := range docs {
		if err := idx.Insert(ctx, doc); err != nil {
			color.Red("Failed to index document %s: %v\n", doc.Source, err)
			continue
		}
		indexingBar.Add(1)
	}
	indexingBar.Finish()
	color.Green("✓ URL processed and stored\n")

	return nil
}

func runAgent(ctx context.Context, model llms.Model) error {
	reactAgent, err := agent.New(model)
	if err != nil {
		return fmt.Errorf("failed to initialize agent: %v", err)
	}

	color.Cyan("\nCalculator agent (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	agentPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := scanner.Text()
		if strings.ToLower(input) == "exit" {
			break
		}

		spinner := getSpinner(" Reasoning...")
		answer, err := reactAgent.Run(ctx, input)
		spinner.Finish()

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		agentPrompt("\nAgent: %s\n", answer)
	}

	return nil
}
