// Package main provides the jubox entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/nanao/jubox/internal/app/filter"
	"github.com/nanao/jubox/internal/app/resolver"
	"github.com/nanao/jubox/internal/app/session"
	"github.com/nanao/jubox/internal/domain/track"
	"github.com/nanao/jubox/internal/infra/config"
	"github.com/nanao/jubox/internal/infra/logger"
	"github.com/nanao/jubox/internal/infra/spotify"
)

var (
	app        = kingpin.New("jubox", "jubox playback session engine")
	configPath = app.Flag("config", "Path to config file").Default("config/jubox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available audio filters and exit")

	// search command
	searchCmd   = app.Command("search", "Search the content provider and print results")
	searchQuery = searchCmd.Arg("query", "Search query").Required().String()

	// resolve command
	resolveCmd = app.Command("resolve", "Resolve a track URL to a stream reference")
	resolveURL = resolveCmd.Arg("url", "Track URL or URI").Required().String()
)

func init() {
	// start command (default)
	app.Command("start", "Start the session engine (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	switch command {
	case searchCmd.FullCommand():
		err = runSearch(cfg, *searchQuery)
	case resolveCmd.FullCommand():
		err = runResolve(cfg, *resolveURL)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("jubox error: %v", err)
		os.Exit(1)
	}
}

// buildResolver wires the Spotify provider into a resolver using the
// configured tunables.
func buildResolver(ctx context.Context, cfg *config.Config) (*resolver.Resolver, error) {
	provider, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify client: %w", err)
	}

	return resolver.New(provider, resolver.Config{
		CacheTTL:         cfg.Resolver.CacheTTL(),
		CacheSize:        cfg.Resolver.CacheSize,
		BreakerThreshold: cfg.Resolver.BreakerThreshold,
		BreakerCooldown:  cfg.Resolver.BreakerCooldown(),
		SearchTimeout:    cfg.Resolver.SearchTimeout(),
		FallbackTimeout:  cfg.Resolver.FallbackTimeout(),
		RateLimit:        rate.Limit(cfg.Resolver.RateLimit),
		RateBurst:        cfg.Resolver.RateBurst,
	}, nil), nil
}

// run starts the session engine and blocks until a shutdown signal.
func run(cfg *config.Config) error {
	ctx := context.Background()

	res, err := buildResolver(ctx, cfg)
	if err != nil {
		return err
	}

	registry := session.NewRegistry(session.Deps{
		Streams: res,
		Search:  res,
		SessionConfig: session.Config{
			IdleTimeout:      cfg.Session.IdleTimeout(),
			MaxTrackFailures: cfg.Session.MaxTrackFailures,
			AlwaysOn:         cfg.Session.AlwaysOn,
		},
	})

	zlog.Info().Msgf("jubox started: sessions=%d", registry.Len())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	zlog.Info().Msg("Received shutdown signal...")
	for _, id := range registry.IDs() {
		registry.Remove(id)
	}
	zlog.Info().Msg("jubox stopped")
	return nil
}

// runSearch performs a one-shot search and prints the results.
func runSearch(cfg *config.Config, query string) error {
	ctx := context.Background()

	res, err := buildResolver(ctx, cfg)
	if err != nil {
		return err
	}

	tracks := res.Search(ctx, query, track.PlatformSpotify, 10)
	if len(tracks) == 0 {
		fmt.Println("No results")
		return nil
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s - %s (%s) %s\n", i+1, t.Artist, t.Title, t.Duration(), t.URL)
	}
	return nil
}

// runResolve resolves a track URL to a stream reference and prints it.
func runResolve(cfg *config.Config, url string) error {
	ctx := context.Background()

	res, err := buildResolver(ctx, cfg)
	if err != nil {
		return err
	}

	ref := res.ResolveStream(ctx, url)
	if ref == nil {
		fmt.Println("No stream available")
		return nil
	}
	fmt.Printf("stream: %s (codec=%s)\n", ref.URL, ref.Codec)
	return nil
}

// printFilters prints the supported audio filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, key := range filter.Supported() {
		descriptor, _ := filter.Descriptor(key)
		fmt.Printf("  %-12s - %s\n", key, descriptor)
	}
}
