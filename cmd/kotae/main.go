// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "documents":
		runDocuments()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: kotae <command> [flags]

Commands:
  server       Start the HTTP API server
  ingest       Ingest a file or directory into the knowledge base
  ask          Ask a question about ingested documents
  documents    List ingested documents
  delete       Delete a document by id
  status       Show knowledge base status
  version      Print version
  help         Show this help`)
}

// components bundles everything the CLI needs to talk to the knowledge base
// directly (without a running server).
type components struct {
	Store    *store.KnowledgeStore
	Ingestor *ingest.Pipeline
	QA       *qa.Pipeline
	Oracle   llm.Oracle
}

func (c *components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// newEmbedder builds the configured embedder, falling back to the offline
// hash embedder when the configured provider cannot start.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	switch cfg.Embedding.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
		})
		if err != nil {
			logger.Warn("openai embedder unavailable, using hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
		}
		return e
	case "onnx":
		e, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("onnx embedder unavailable, using hash embedder", zap.Error(err))
			return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
		}
		return e
	default:
		return embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedder := newEmbedder(cfg, logger)
	backend, err := vector.NewBackend(embedder, cfg.Storage)
	if err != nil {
		return nil, err
	}
	registry, err := store.NewRegistry(cfg.Storage.DatabasePath)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	ks := store.NewKnowledgeStore(backend, registry, store.WithLogger(logger))

	var oracle llm.Oracle
	client, err := llm.NewClient(llm.ClientConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Warn("reasoning oracle unavailable; questions will fail until configured", zap.Error(err))
	} else {
		oracle = client
	}

	ingestOpts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithChunkSize(cfg.Ingest.ChunkSize),
	}
	if oracle != nil {
		ingestOpts = append(ingestOpts, ingest.WithOracle(oracle))
	}
	ingestor := ingest.NewPipeline(extract.NewExtractor(), ks, ingestOpts...)

	qaPipeline := qa.NewPipeline(ks, oracleOrFailing(oracle), cfg.QA, qa.WithLogger(logger))

	return &components{
		Store:    ks,
		Ingestor: ingestor,
		QA:       qaPipeline,
		Oracle:   oracle,
	}, nil
}

type unconfiguredOracle struct{}

func (unconfiguredOracle) Complete(ctx context.Context, role llm.Role, prompt string) (string, error) {
	return "", fmt.Errorf("reasoning oracle not configured: set the LLM API key")
}

func oracleOrFailing(oracle llm.Oracle) llm.Oracle {
	if oracle != nil {
		return oracle
	}
	return unconfiguredOracle{}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	ingestor := comps.Ingestor
	ks := comps.Store
	watchSvc := watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := ingestor.Ingest(context.Background(), path, filepath.Base(path), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			doc, err := ks.FindBySourcePath(context.Background(), path)
			if err != nil || doc == nil {
				return
			}
			if err := ks.DeleteDocument(context.Background(), doc.ID); err != nil {
				logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		comps.Store,
		comps.Ingestor,
		comps.QA,
		cfg,
		logger,
		server.WithWatcher(watchSvc, resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use local storage directly)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	if *serverURL != "" {
		if err := uploadViaHTTP(*serverURL, path); err != nil {
			fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n := 0
		entries, err := os.ReadDir(path)
		if err != nil {
			fmt.Printf("Failed to read directory: %v\n", err)
			os.Exit(1)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if !extract.Supported(strings.ToLower(filepath.Ext(name))) {
				continue
			}
			full := filepath.Join(path, name)
			result, err := comps.Ingestor.Ingest(ctx, full, name, "")
			if err != nil {
				fmt.Printf("Failed to ingest %s: %v\n", name, err)
				continue
			}
			fmt.Printf("Ingested %s: %s (%d chunks, %d tables)\n",
				name, result.DocumentID, result.TextChunks, result.Tables)
			n++
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}

	result, err := comps.Ingestor.Ingest(ctx, path, filepath.Base(path), "")
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document ingested successfully: %s (%d chunks, %d tables)\n",
		result.DocumentID, result.TextChunks, result.Tables)
}

func uploadViaHTTP(serverURL, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	fmt.Println(string(bytes.TrimSpace(b)))
	return nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use local storage directly)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	if *serverURL != "" {
		if err := askViaHTTP(*serverURL, question); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()

	answer, err := comps.QA.Answer(context.Background(), question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Answering failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(answer.Answer)
	fmt.Println()
	for _, src := range answer.Sources {
		fmt.Printf("  %s\n", src)
	}
	fmt.Printf("  Agent: %s\n", answer.AgentUsed)
}

func askViaHTTP(serverURL, question string) error {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out struct {
		Answer    string   `json:"answer"`
		Sources   []string `json:"sources"`
		AgentUsed string   `json:"agent_used"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Println(out.Answer)
	fmt.Println()
	for _, src := range out.Sources {
		fmt.Printf("  %s\n", src)
	}
	fmt.Printf("  Agent: %s\n", out.AgentUsed)
	return nil
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use local storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type docEntry struct {
		ID         string    `json:"id"`
		Filename   string    `json:"filename"`
		TextChunks int       `json:"text_chunks"`
		Tables     int       `json:"tables"`
		CreatedAt  time.Time `json:"created_at"`
	}
	var docs []docEntry

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/documents")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Documents []docEntry `json:"documents"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
			os.Exit(1)
		}
		docs = out.Documents
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		comps, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer comps.Close()
		list, err := comps.Store.ListDocuments(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Listing failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range list {
			docs = append(docs, docEntry{
				ID: d.ID, Filename: d.Filename,
				TextChunks: d.TextChunks, Tables: d.Tables, CreatedAt: d.CreatedAt,
			})
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(docs); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		if len(docs) == 0 {
			fmt.Println("No documents ingested.")
			return
		}
		for _, d := range docs {
			fmt.Printf("%s  %-30s  %d chunks, %d tables  %s\n",
				d.ID, d.Filename, d.TextChunks, d.Tables, d.CreatedAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use local storage directly)")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae delete [flags] <document-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	if *serverURL != "" {
		req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+id, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
			os.Exit(1)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Document %s deleted\n", id)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer comps.Close()
	if err := comps.Store.DeleteDocument(context.Background(), id); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document %s deleted\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use local storage directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	type statusResponse struct {
		Documents  int            `json:"documents"`
		TextChunks int            `json:"text_chunks"`
		Tables     int            `json:"tables"`
		Config     map[string]any `json:"config,omitempty"`
	}
	var status statusResponse

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Decode failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		comps, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer comps.Close()
		documents, textChunks, tables, err := comps.Store.Counts(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Documents:  documents,
			TextChunks: textChunks,
			Tables:     tables,
			Config: map[string]any{
				"vector_backend":     cfg.Storage.VectorBackend,
				"embedding_provider": cfg.Embedding.Provider,
				"chunk_size":         cfg.Ingest.ChunkSize,
				"llm_model":          cfg.LLM.Model,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("documents:    %d\n", status.Documents)
		fmt.Printf("text_chunks:  %d\n", status.TextChunks)
		fmt.Printf("tables:       %d\n", status.Tables)
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"vector_backend", "embedding_provider", "chunk_size", "llm_model"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-20s%v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}
