package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/robertomiguez/lastprice-llm/internal/extraction"
	"github.com/robertomiguez/lastprice-llm/internal/receipt"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("lastprice")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		provider    = fs.StringLong("provider", "groq", "Extraction provider: 'groq' or 'gemini'")
		groqKey     = fs.StringLong("groq-key", "", "Groq API key (or set GROQ_API_KEY env var)")
		groqModel   = fs.StringLong("groq-model", "", "Groq model name")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		maxRetries  = fs.IntLong("max-retries", 2, "Additional model call attempts after the first")
		timeoutSec  = fs.IntLong("timeout", 30, "Per-attempt model call timeout in seconds")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("LASTPRICE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize extraction provider based on type
	var extractor extraction.Extractor
	switch *provider {
	case "groq":
		// Get Groq API key from flag or environment
		apiKey := *groqKey
		if apiKey == "" {
			apiKey = os.Getenv("GROQ_API_KEY")
		}
		if apiKey == "" {
			// The server still starts; requests answer 503 until a key
			// is provided.
			slog.Warn("No Groq API key configured. Set --groq-key flag or GROQ_API_KEY environment variable")
		}
		cfg := extraction.DefaultConfig()
		if *groqModel != "" {
			cfg.Model = *groqModel
		}
		cfg.Timeout = time.Duration(*timeoutSec) * time.Second
		cfg.MaxRetries = *maxRetries
		slog.Info("Initializing Groq extractor...", "model", cfg.Model)
		extractor = extraction.NewGroq(apiKey, cfg)
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		var err error
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid provider type", "type", *provider, "valid", "groq or gemini")
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize service and server
	service := receipt.NewService(extractor)
	server := receipt.NewServer(service)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
