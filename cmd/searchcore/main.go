// Command searchcore hosts the search engine for local use: it indexes
// documents from JSON event files or a Kafka topic, publishes event files
// to Kafka, and runs queries from the command line.
//
// Usage:
//
//	searchcore [-config file] index   -events events.json
//	searchcore [-config file] search  -q 'name:david*' [-sort -value] [-facet name]
//	searchcore [-config file] consume
//	searchcore [-config file] publish -events events.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/searchcore/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/searchcore/pkg/search"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// stdout carries search results
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "index":
		err = runIndex(ctx, cfg, args)
	case "search":
		err = runSearch(ctx, cfg, args)
	case "consume":
		err = runConsume(ctx, cfg, args)
	case "publish":
		err = runPublish(ctx, cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: searchcore [-config file] index|search|consume|publish [flags]\n")
	flag.PrintDefaults()
}

// host is an opened engine and the connections it depends on.
type host struct {
	engine *search.Engine
	redis  *pkgredis.Client
}

func (h *host) close() {
	if h.redis != nil {
		_ = h.redis.Close()
	}
}

// openEngine loads the newest snapshot with the configured cache and
// metrics.
func openEngine(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*host, error) {
	opts := []search.Option{search.WithLogger(slog.Default())}
	if m != nil {
		opts = append(opts, search.WithMetrics(m))
	}
	h := &host{}
	if cfg.Cache.Backend == "redis" {
		err := resilience.Retry(ctx, "redis-connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond}, func() error {
			var err error
			h.redis, err = pkgredis.NewClient(ctx, cfg.Redis, "searchcore:")
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		opts = append(opts, search.WithCache(cache.NewRedisStore(h.redis)))
		slog.Info("redis result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
	}
	e, err := search.Open(ctx, *cfg, opts...)
	if err != nil {
		h.close()
		return nil, err
	}
	h.engine = e
	return h, nil
}

func readEvents(path string) ([]ingest.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
		ev, err := kafka.DecodeJSON[ingest.Event](data)
		if err != nil {
			return nil, err
		}
		return []ingest.Event{ev}, nil
	}
	return kafka.DecodeJSON[[]ingest.Event](data)
}

func runIndex(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	eventsPath := fs.String("events", "", "JSON file with one index event or a list of them")
	_ = fs.Parse(args)
	if *eventsPath == "" {
		return fmt.Errorf("index needs -events")
	}
	events, err := readEvents(*eventsPath)
	if err != nil {
		return err
	}

	h, err := openEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer h.close()
	e := h.engine

	start := time.Now()
	for i := range events {
		if err := ingest.Apply(ctx, e, &events[i]); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	path, err := e.Persist(ctx)
	if err != nil {
		return err
	}
	slog.Info("indexing complete",
		"events", len(events),
		"documents", e.DocumentCount(),
		"snapshot", path,
		"duration", time.Since(start),
	)
	return nil
}

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func runSearch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := fs.String("q", "", "query string")
	limit := fs.Int("limit", 10, "page size")
	offset := fs.Int("offset", 0, "start offset")
	highlight := fs.Bool("highlight", false, "highlight matched terms")
	spelling := fs.Bool("spelling", false, "return a spelling suggestion")
	var sortBy, narrow, facets, models listFlag
	fs.Var(&sortBy, "sort", "sort field, '-' prefixed for descending (repeatable)")
	fs.Var(&narrow, "narrow", "narrow query (repeatable)")
	fs.Var(&facets, "facet", "field facet (repeatable)")
	fs.Var(&models, "model", "restrict to model (repeatable)")
	_ = fs.Parse(args)

	h, err := openEngine(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer h.close()

	resp, err := h.engine.SearchString(ctx, *q, search.Options{
		SortBy:      sortBy,
		Narrow:      narrow,
		Models:      models,
		Facets:      facets,
		Highlight:   *highlight,
		StartOffset: *offset,
		Limit:       *limit,
		Spelling:    *spelling,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func runConsume(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("consume", flag.ExitOnError)
	persistEvery := fs.Duration("persist-every", time.Minute, "snapshot interval, 0 to persist only on shutdown")
	_ = fs.Parse(args)

	m := metrics.New(prometheus.DefaultRegisterer)
	h, err := openEngine(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer h.close()
	e := h.engine

	if cfg.Metrics.Enabled {
		checker := health.NewChecker()
		checker.Register("index", health.DocumentsCheck(e.DocumentCount))
		if h.redis != nil {
			checker.Register("redis", health.PingCheck(h.redis, health.StatusDegraded))
		}
		shutdown := metrics.StartServer(cfg.Metrics.Port, nil, map[string]http.Handler{
			"/healthz": checker.LiveHandler(),
			"/readyz":  checker.ReadyHandler(),
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexEvents, ingest.HandleMessage(e))
	defer consumer.Close()

	if *persistEvery > 0 {
		go func() {
			ticker := time.NewTicker(*persistEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := e.Persist(ctx); err != nil {
						slog.Error("periodic snapshot failed", "error", err)
					}
				}
			}
		}()
	}

	slog.Info("consuming index events",
		"topic", cfg.Kafka.Topics.IndexEvents,
		"group", cfg.Kafka.ConsumerGroup,
	)
	consumeErr := consumer.Start(ctx)
	if consumeErr != nil {
		slog.Error("consumer error", "error", consumeErr)
	}

	slog.Info("writing snapshot before shutdown")
	if _, err := e.Persist(context.Background()); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	return consumeErr
}

func runPublish(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	eventsPath := fs.String("events", "", "JSON file with one index event or a list of them")
	batch := fs.Int("batch", 500, "documents per update event")
	_ = fs.Parse(args)
	if *eventsPath == "" {
		return fmt.Errorf("publish needs -events")
	}
	events, err := readEvents(*eventsPath)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexEvents)
	defer producer.Close()
	pub := ingest.NewPublisher(producer, *batch)

	for i := range events {
		ev := &events[i]
		if err := ingest.Validate(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		switch ev.Op {
		case ingest.OpUpdate:
			desc := ev.Descriptor()
			docs, err := ingest.Documents(desc, ev.Documents)
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
			err = pub.Update(ctx, desc, docs)
		case ingest.OpRemove:
			err = pub.Remove(ctx, ev.Model, ev.PK)
		case ingest.OpClear:
			err = pub.Clear(ctx, ev.Models...)
		}
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	slog.Info("events published", "count", len(events), "topic", cfg.Kafka.Topics.IndexEvents)
	return nil
}
