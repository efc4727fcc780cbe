package main

import (
	"flag"
	"log"
	"os"

	"github.com/fatih/color"
	cfgPkg "github.com/kheld/ragdex/pkg/config"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	Model        string
	EmbedModel   string
	VectorDim    int
	DBUrl        string
	TableName    string
	BatchSize    int
	IngestDir    string
	DocsURL      string
	PersistPath  string
	SplitMode    string
	ChunkSize    int
	ChunkOverlap int
	MaxDepth     int
	RateLimit    float64
	TopK         int
	ChatMode     string
	MaxTokens    int
	Streaming    bool
	Temperature  float64
	AgentMode    bool
	ServeAddr    string
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.Provider, "provider", "", "LLM provider (ollama or openai)")
	flag.StringVar(&config.BaseURL, "base-url", os.Getenv("OLLAMA_BASE_URL"), "LLM server URL")
	flag.StringVar(&config.Model, "model", "", "LLM model to use")
	flag.StringVar(&config.EmbedModel, "embed-model", "", "Embedding model to use")
	flag.IntVar(&config.VectorDim, "vector-dim", 0, "Embedding vector dimension")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (empty for in-memory store)")
	flag.StringVar(&config.TableName, "table", "", "PostgreSQL table name")
	flag.IntVar(&config.BatchSize, "batch-size", 0, "Batch size for database operations")
	flag.StringVar(&config.IngestDir, "ingest", "", "Directory of documents to ingest before chatting")
	flag.StringVar(&config.DocsURL, "docs-url", "", "Documentation URL to scrape before chatting")
	flag.StringVar(&config.PersistPath, "persist", "", "Path for persisting the in-memory store")
	flag.StringVar(&config.SplitMode, "split-mode", "", "Chunking mode (sentence or token)")
	flag.IntVar(&config.ChunkSize, "chunk-size", 0, "Size of text chunks")
	flag.IntVar(&config.ChunkOverlap, "chunk-overlap", 0, "Overlap between neighbouring chunks")
	flag.IntVar(&config.MaxDepth, "max-depth", 0, "Maximum depth for web scraping")
	flag.Float64Var(&config.RateLimit, "rate-limit", 0, "Rate limit for web scraping")
	flag.IntVar(&config.TopK, "top-k", 0, "Number of chunks to retrieve per question")
	flag.StringVar(&config.ChatMode, "chat-mode", "", "Chat mode (context or condense_question)")
	flag.IntVar(&config.MaxTokens, "max-tokens", 0, "Maximum tokens for LLM response")
	flag.BoolVar(&config.Streaming, "stream", true, "Enable streaming responses")
	flag.Float64Var(&config.Temperature, "temperature", 0, "Set the LLM temperature")
	flag.BoolVar(&config.AgentMode, "agent", false, "Run the calculator ReAct agent instead of RAG chat")
	flag.StringVar(&config.ServeAddr, "serve", "", "Serve the WebSocket API on this address instead of the REPL (e.g. :8080)")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("invalid config: %v", e)
		}
		os.Exit(1)
	}

	// Flags override the config file
	if config.Provider == "" {
		config.Provider = cfg.LLM.Provider
	}
	if config.BaseURL == "" {
		config.BaseURL = cfg.LLM.BaseURL
	}
	config.APIKey = cfg.LLM.APIKey
	if config.Model == "" {
		config.Model = cfg.LLM.Model
	}
	if config.EmbedModel == "" {
		config.EmbedModel = cfg.Embedding.Model
	}
	if config.VectorDim == 0 {
		config.VectorDim = cfg.Embedding.Dim
	}
	if config.DBUrl == "" {
		config.DBUrl = cfg.Database.URL
	}
	if config.TableName == "" {
		config.TableName = cfg.Database.TableName
	}
	if config.BatchSize == 0 {
		config.BatchSize = cfg.Database.BatchSize
	}
	if config.IngestDir == "" {
		config.IngestDir = cfg.Reader.InputDir
	}
	if config.SplitMode == "" {
		config.SplitMode = cfg.Splitter.Mode
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = cfg.Splitter.ChunkSize
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = cfg.Splitter.ChunkOverlap
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = cfg.Scraper.MaxDepth
	}
	if config.RateLimit == 0 {
		config.RateLimit = cfg.Scraper.RateLimit
	}
	if config.TopK == 0 {
		config.TopK = cfg.Retrieval.TopK
	}
	if config.ChatMode == "" {
		config.ChatMode = cfg.Retrieval.ChatMode
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = cfg.LLM.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = cfg.LLM.Temperature
	}

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
	)
}
