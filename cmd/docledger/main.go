package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docledger/constants"
	"github.com/joseph-ayodele/docledger/internal/common"
	"github.com/joseph-ayodele/docledger/internal/document"
	"github.com/joseph-ayodele/docledger/internal/export"
	"github.com/joseph-ayodele/docledger/internal/history"
	"github.com/joseph-ayodele/docledger/internal/llm"
	"github.com/joseph-ayodele/docledger/internal/llm/openai"
	"github.com/joseph-ayodele/docledger/internal/pipeline"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(realMain())
}

// realMain exists so deferred cleanup runs before the process exits.
func realMain() int {
	var (
		in           = flag.String("in", "", "document to process (.pdf or .txt)")
		out          = flag.String("out", "", "output directory (defaults to the document's directory)")
		xlsx         = flag.Bool("xlsx", false, "also write an XLSX workbook")
		concurrency  = flag.Int("concurrency", 0, "parallel extraction calls (default from env, 4)")
		segmentChars = flag.Int("segment-chars", 0, "max characters per segment (default from env, 4000)")
		allowPartial = flag.Bool("allow-partial", false, "merge successful segments even if some failed")
		dbPath       = flag.String("db", "", "history database path (default from env, docledger.db)")
		listHistory  = flag.Bool("history", false, "list recent runs and exit")
		verbose      = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *concurrency > 0 {
		cfg.Pipeline.Concurrency = *concurrency
	}
	if *segmentChars > 0 {
		cfg.Pipeline.MaxSegmentChars = *segmentChars
	}
	if *dbPath != "" {
		cfg.History.DBPath = *dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(cfg.History.DBPath, logger)
	if err != nil {
		printError("Error: open history store: %v\n", err)
		return 1
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("history.close_error", "error", cerr)
		}
	}()

	if *listHistory {
		return printHistory(ctx, store)
	}

	if *in == "" {
		printError("Error: -in is required\n")
		flag.Usage()
		return 1
	}
	if cfg.LLM.APIKey == "" {
		printError("Error: OPENAI_API_KEY is not configured\n")
		return 1
	}
	if *out == "" {
		*out = filepath.Dir(*in)
	}

	return run(ctx, logger, cfg, store, *in, *out, *xlsx, *allowPartial)
}

func run(ctx context.Context, logger *slog.Logger, cfg *common.Config, store *history.Store, in, outDir string, xlsx, allowPartial bool) int {
	pages, err := document.ReadFile(in)
	if err != nil {
		printError("Error: read document: %v\n", err)
		return 1
	}
	logger.Info("document.read.ok", "file", in, "pages", len(pages))

	retry := llm.DefaultRetryPolicy()
	if cfg.LLM.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.LLM.MaxAttempts
	}
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		Retry:       retry,
		CacheSize:   cfg.LLM.CacheSize,
	}, logger)

	proc := pipeline.NewProcessor(logger, client, pipeline.Config{
		MaxSegmentChars: cfg.Pipeline.MaxSegmentChars,
		Concurrency:     cfg.Pipeline.Concurrency,
		AllowPartial:    allowPartial,
	})
	proc.OnProgress = func(fraction float64) {
		logger.Info("pipeline.progress", "fraction", fmt.Sprintf("%.2f", fraction))
	}

	res, err := proc.Process(ctx, pages)
	if err != nil {
		status := constants.RunStatusFailed
		if common.IsCancelled(err) {
			status = constants.RunStatusAborted
			printError("Aborted: %v\n", err)
		} else {
			printError("Error: %v\n", err)
		}
		recordRun(ctx, logger, store, in, status, nil)
		if status == constants.RunStatusAborted {
			return 130
		}
		return 1
	}

	recordRun(ctx, logger, store, in, constants.RunStatusOK, res)

	svc := export.NewService(logger)
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	jsonPath := filepath.Join(outDir, base+".aggregate.json")
	if err := svc.WriteJSON(jsonPath, export.Artifact{Aggregate: res.Aggregate, Report: res.Report}); err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if xlsx {
		xlsxPath := filepath.Join(outDir, base+".xlsx")
		if err := svc.WriteXLSX(xlsxPath, &res.Aggregate); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
	}

	fmt.Printf("ok: %d members, %d ledgers, revenue %.2f (valid=%t, %d warnings)\n",
		len(res.Aggregate.Members),
		len(res.Aggregate.Financials.ByMember),
		res.Aggregate.Financials.Overall.TotalRevenue,
		res.Report.IsValid,
		len(res.Report.Warnings),
	)
	return 0
}

func recordRun(ctx context.Context, logger *slog.Logger, store *history.Store, in string, status constants.RunStatus, res *pipeline.RunResult) {
	r := history.Run{FileName: filepath.Base(in), Status: status}
	if res != nil {
		r.ID = res.RunID
		r.PageCount = res.Pages
		r.SegmentCount = res.Segments
		r.MemberCount = len(res.Aggregate.Members)
		r.TotalSales = res.Aggregate.Financials.Overall.TotalSales
		r.TotalRevenue = res.Aggregate.Financials.Overall.TotalRevenue
		r.IsValid = res.Report.IsValid
		r.ErrorCount = len(res.Report.Errors)
		r.WarningCount = len(res.Report.Warnings)
		r.Elapsed = res.Elapsed
	} else {
		r.ID = uuid.New()
	}
	// History is bookkeeping; failure to record never fails the run.
	if err := store.Record(context.WithoutCancel(ctx), r); err != nil {
		logger.Warn("history.record_error", "error", err)
	}
}

func printHistory(ctx context.Context, store *history.Store) int {
	runs, err := store.List(ctx, 20)
	if err != nil {
		printError("Error: list history: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return 0
	}
	for _, r := range runs {
		fmt.Printf("%s  %-7s  %-30s  pages=%d segments=%d members=%d revenue=%.2f valid=%t\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Status, r.FileName,
			r.PageCount, r.SegmentCount, r.MemberCount, r.TotalRevenue, r.IsValid)
	}
	return 0
}
