package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragdata-go/ragdata"
	"github.com/ragdata-go/ragdata/blobproc"
	"github.com/ragdata-go/ragdata/llm"
	"github.com/ragdata-go/ragdata/parser"
	"github.com/ragdata-go/ragdata/ragconfig"
	"github.com/ragdata-go/ragdata/taskqueue"
)

// serverConfig is the on-disk JSON config cmd/server loads: the typed
// ragconfig.Record (§6.5) plus the process-level wiring carried inline
// (embedding model, local blob directory, task queue backend, and the
// optional LlamaParse/vision parser escalation).
type serverConfig struct {
	Record    ragconfig.Record `json:"record"`
	Embedding llm.Config       `json:"embedding"`
	BlobDir   string           `json:"blob_dir"`
	Queue     struct {
		Backend   string `json:"backend"` // memory | redis
		RedisAddr string `json:"redis_addr"`
	} `json:"queue"`
	// LlamaParseAPIKey enables legacy doc/xls/ppt parsing via
	// LlamaParse's hosted conversion API. Empty disables it.
	LlamaParseAPIKey string `json:"llamaparse_api_key,omitempty"`
	// Vision configures an LLM used to escalate structurally complex
	// PDF pages (tables, multi-column layout) past plain-text
	// extraction. Empty Provider disables it.
	Vision llm.Config `json:"vision,omitempty"`
}

func defaultServerConfig() serverConfig {
	cfg := serverConfig{BlobDir: "lf_data/blobs"}
	cfg.Queue.Backend = "memory"
	return cfg
}

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := defaultServerConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	if v := os.Getenv("RAGDATA_BLOB_DIR"); v != "" {
		cfg.BlobDir = v
	}
	if v := os.Getenv("RAGDATA_EMBED_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("RAGDATA_EMBED_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("RAGDATA_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("RAGDATA_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if cfg.Embedding.APIKey == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Embedding.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	if v := os.Getenv("RAGDATA_REDIS_ADDR"); v != "" {
		cfg.Queue.Backend = "redis"
		cfg.Queue.RedisAddr = v
	}
	if v := os.Getenv("RAGDATA_LLAMAPARSE_API_KEY"); v != "" {
		cfg.LlamaParseAPIKey = v
	}

	apiKey := os.Getenv("RAGDATA_API_KEY")
	corsOrigins := os.Getenv("RAGDATA_CORS_ORIGINS")

	source, err := newDiskSource(cfg.BlobDir)
	if err != nil {
		slog.Error("creating blob source", "error", err)
		os.Exit(1)
	}

	embedder, err := llm.NewProvider(cfg.Embedding)
	if err != nil {
		slog.Error("creating embedding provider", "error", err)
		os.Exit(1)
	}

	client := ragdata.New(cfg.Record, source, embedder, nil)
	client.ParserOptions = buildParserOptions(cfg)

	ctx := context.Background()
	switch cfg.Queue.Backend {
	case "redis":
		queue, err := taskqueue.NewRedis(ctx, taskqueue.RedisConfig{Addr: cfg.Queue.RedisAddr})
		if err != nil {
			slog.Error("connecting to redis task queue", "error", err)
			os.Exit(1)
		}
		defer queue.Close()
		client.Queue = queue
		go runRedisWorker(ctx, queue, client.Handler)
	default:
		client.Queue = taskqueue.NewMemory(client.Handler)
	}

	h := newHandler(client, source)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /ingest", h.handleIngest)
	mux.HandleFunc("POST /preview", h.handlePreview)
	mux.HandleFunc("GET /tasks/{id}", h.handleTaskStatus)
	mux.HandleFunc("DELETE /datasets/{dataset}/files/{hash}", h.handleDeleteFileChunks)
	mux.HandleFunc("DELETE /datasets/{dataset}", h.handleDeleteDatasetChunks)
	mux.HandleFunc("POST /search", h.handleSearch)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses (ingest can be long)
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// runRedisWorker pops and runs tasks off the Redis queue until ctx is
// cancelled, the way a separate worker process would in production;
// folded into the server process here for the single-binary zero-to-aha
// deployment this cmd builds for.
func runRedisWorker(ctx context.Context, queue *taskqueue.Redis, handler taskqueue.Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		id, err := queue.PopAndRun(ctx, 5*time.Second, handler)
		if err != nil {
			slog.Error("redis worker pop failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if id != "" {
			slog.Info("ingest task completed", "task_id", id)
		}
	}
}

// buildParserOptions turns the optional LlamaParse/vision config into
// blobproc.Options. A misconfigured vision provider is logged and
// disabled rather than failing startup, since it is an enrichment the
// pipeline can run without.
func buildParserOptions(cfg serverConfig) blobproc.Options {
	var opts blobproc.Options
	if cfg.LlamaParseAPIKey != "" {
		opts.LlamaParse = &parser.LlamaParseConfig{APIKey: cfg.LlamaParseAPIKey}
	}
	if cfg.Vision.Provider != "" {
		provider, err := llm.NewProvider(cfg.Vision)
		if err != nil {
			slog.Warn("vision provider disabled", "error", err)
			return opts
		}
		vision, ok := provider.(llm.VisionProvider)
		if !ok {
			slog.Warn("vision provider does not support image input", "provider", cfg.Vision.Provider)
			return opts
		}
		opts.Vision = vision
	}
	return opts
}
