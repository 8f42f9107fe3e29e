package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/docledger/internal/llm"
)

// Config for the OpenAI-compatible extraction client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // per-call http client timeout
	Retry       llm.RetryPolicy
	CacheSize   int  // segment-response LRU entries; <=0 disables caching
	StrictOnly  bool // disable the lenient normalize-and-revalidate fallback
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	cache  *lru.Cache[string, []byte]
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	if cfg.CacheSize > 0 {
		// Error only fires for size <= 0, which is excluded above.
		c.cache, _ = lru.New[string, []byte](cfg.CacheSize)
	}
	return c
}
