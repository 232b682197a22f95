// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/scholarly"
	"github.com/poiesic/scholarly/ai"
	"github.com/poiesic/scholarly/config"
	"github.com/poiesic/scholarly/core"
	"github.com/poiesic/scholarly/ingestion"
	"github.com/poiesic/scholarly/reembed"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scholarly",
		Usage: "Collect research papers and web news into a searchable store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   config.DefaultConfigPath(),
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Ingest on a schedule until interrupted",
				Action: runCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Run one ingestion cycle for every enabled source",
				Action: ingestCommand,
			},
			{
				Name:      "search",
				Usage:     "Search arXiv without storing the results",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of papers to show",
						Value: 10,
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Look up a single arXiv paper",
				ArgsUsage: "ID",
				Action:    getCommand,
			},
			{
				Name:      "websearch",
				Usage:     "Ask the web search API and print its answer with sources",
				ArgsUsage: "QUERY",
				Action:    webSearchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of results to cite",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Cut the reply after this many tokens",
						Value: 4000,
					},
				},
			},
			{
				Name:      "report",
				Usage:     "Ask the STORM server to write a research report",
				ArgsUsage: "TOPIC",
				Action:    reportCommand,
			},
			{
				Name:   "list",
				Usage:  "List the most recent stored records",
				Action: listCommand,
				Flags: []cli.Flag{
					roomFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of records to list",
						Value: 20,
					},
				},
			},
			{
				Name:   "summarize",
				Usage:  "Summarize the most recent stored records",
				Action: summarizeCommand,
				Flags: []cli.Flag{
					roomFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of records to summarize",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "reviews",
						Usage: "Also write a short review of each record",
					},
				},
			},
			{
				Name:      "recall",
				Usage:     "Find stored records relevant to a query",
				ArgsUsage: "QUERY",
				Action:    recallCommand,
				Flags: []cli.Flag{
					roomFlag(),
					&cli.IntFlag{
						Name:  "max",
						Usage: "Maximum number of hits",
						Value: 5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Compute embeddings for stored records",
				Action: reembedCommand,
				Flags: []cli.Flag{
					roomFlag(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Replace existing embeddings instead of filling in missing ones",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func roomFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "source",
		Aliases: []string{"s"},
		Usage:   "Which room to read (arxiv, websearch)",
		Value:   "arxiv",
	}
}

func openService(c *cli.Context, opts ...scholarly.Option) (*scholarly.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	svc, err := scholarly.New(cfg, append([]scholarly.Option{scholarly.WithLogger(slog.Default())}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

// roomFor maps the --source flag to the room it names.
func roomFor(svc *scholarly.Service, name string) (string, error) {
	switch strings.ToLower(name) {
	case "arxiv":
		return svc.ArxivRoom(), nil
	case "websearch", "web":
		return svc.WebSearchRoom(), nil
	default:
		return "", fmt.Errorf("unknown source %q: must be arxiv or websearch", name)
	}
}

func runCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	if len(svc.Schedulers()) == 0 {
		return fmt.Errorf("no sources are enabled in %s", c.String("config"))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		return svc.Stop()
	})
	return g.Wait()
}

func ingestCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, report := range svc.RunOnce(c.Context) {
		printReport(c.App.Writer, report)
	}
	return nil
}

func printReport(w io.Writer, report *ingestion.CycleReport) {
	fmt.Fprintf(w, "%s: stored %d, skipped %d in %s\n",
		report.RoomID, report.Stored(), report.Skipped(), report.Duration().Round(time.Millisecond))
	for _, category := range report.Categories {
		status := ""
		switch {
		case category.Failed:
			status = " (failed)"
		case category.Empty:
			status = " (empty)"
		}
		fmt.Fprintf(w, "  %-16s fetched %d, stored %d, skipped %d%s\n",
			category.Category, category.Fetched, category.Stored, category.Skipped, status)
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(w, "  ! %s\n", failure)
	}
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a search query is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	arxiv, err := svc.Arxiv()
	if err != nil {
		return err
	}
	items, err := arxiv.Search(c.Context, query, c.Int("max"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	for i, item := range items {
		fmt.Fprintf(c.App.Writer, "%d: %s [%s]\n   %s\n", i+1, item.Title, item.ID, item.URL)
	}
	return nil
}

func getCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one paper ID is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	arxiv, err := svc.Arxiv()
	if err != nil {
		return err
	}
	item, err := arxiv.GetPaper(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, core.RenderContent(item))
	return nil
}

func webSearchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a search query is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	web, err := svc.WebSearch()
	if err != nil {
		return err
	}
	result, err := web.Search(c.Context, query, c.Int("max"))
	if err != nil {
		return fmt.Errorf("web search failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, ai.TrimTokens(result.Format(), c.Int("max-tokens")))
	return nil
}

func reportCommand(c *cli.Context) error {
	topic := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(topic) == "" {
		return fmt.Errorf("a report topic is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	storm, err := svc.Storm()
	if err != nil {
		return err
	}
	report, err := storm.Generate(c.Context, topic)
	if err != nil {
		return fmt.Errorf("report request failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, report.Format())
	return nil
}

func listCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	room, err := roomFor(svc, c.String("source"))
	if err != nil {
		return err
	}
	records, err := svc.Store().List(c.Context, room, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	for _, record := range records {
		embedded := " "
		if len(record.Vector) > 0 {
			embedded = "*"
		}
		fmt.Fprintf(c.App.Writer, "%s %s  %s\n   %s\n",
			embedded, record.CreatedAt.Format(time.DateOnly), record.Title, record.URL)
	}
	return nil
}

func summarizeCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	summarizer, err := svc.Summarizer()
	if err != nil {
		return err
	}
	room, err := roomFor(svc, c.String("source"))
	if err != nil {
		return err
	}

	digest, err := summarizer.SummarizeRecent(c.Context, room, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, digest.Text)

	if !c.Bool("reviews") {
		return nil
	}
	reviews, err := summarizer.SummarizeRecords(c.Context, digest.Records)
	if err != nil {
		return fmt.Errorf("reviews failed: %w", err)
	}
	for _, review := range reviews {
		fmt.Fprintf(c.App.Writer, "\n## %s\n", review.Title)
		if review.Err != nil {
			fmt.Fprintf(c.App.Writer, "(no review: %v)\n", review.Err)
			continue
		}
		fmt.Fprintln(c.App.Writer, review.Text)
	}
	return nil
}

func recallCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	searcher, err := svc.Searcher()
	if err != nil {
		return err
	}
	room, err := roomFor(svc, c.String("source"))
	if err != nil {
		return err
	}

	hits, err := searcher.Recall(c.Context, room, query, c.Int("max"))
	if err != nil {
		return fmt.Errorf("recall failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Found %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(c.App.Writer, "%d: %s [%0.3f]\n   %s\n", i+1, hit.Record.Title, hit.Score, hit.Record.URL)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		MissingOnly:    !c.Bool("all"),
	}
	if err := reembedConfig.Validate(); err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	room, err := roomFor(svc, c.String("source"))
	if err != nil {
		return err
	}
	embedder, err := svc.Embedder()
	if err != nil {
		return err
	}

	cfg := svc.Config()
	reembedder, err := reembed.NewReembedder(svc.Store(), embedder, reembedConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Store: %s (%s)\n", cfg.StorePath(), cfg.Store)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	result, err := reembedder.Run(c.Context, room)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Embedded %d of %d records, %d already had vectors\n",
		result.Embedded, result.Total, result.Skipped)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
