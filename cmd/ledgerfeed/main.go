package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/araddon/dateparse"
	"github.com/haileyok/ledgerfeed"
	"github.com/haileyok/ledgerfeed/models"
	"github.com/haileyok/ledgerfeed/pinning"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "ledgerfeed",
		Usage: "read and watch a ledger-backed social feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "network",
				EnvVars: []string{"LEDGERFEED_NETWORK"},
				Value:   ledgerfeed.NetworkTestnet,
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				EnvVars: []string{"LEDGERFEED_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "package-id",
				EnvVars: []string{"LEDGERFEED_PACKAGE_ID"},
			},
			&cli.StringFlag{
				Name:    "address",
				Usage:   "address whose profile, comments and follows are read",
				EnvVars: []string{"LEDGERFEED_ADDRESS"},
			},
			&cli.IntFlag{
				Name:    "feed-limit",
				EnvVars: []string{"LEDGERFEED_FEED_LIMIT"},
				Value:   50,
			},
			&cli.IntFlag{
				Name:    "requests-per-second",
				EnvVars: []string{"LEDGERFEED_REQUESTS_PER_SECOND"},
				Value:   10,
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				EnvVars: []string{"LEDGERFEED_METRICS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LEDGERFEED_LOG_LEVEL"},
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "feed",
				Usage: "print recent posts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "since",
						Usage: "only posts created at or after this time, in any common date format",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "only posts by this address",
					},
				},
				Action: runFeed,
			},
			{
				Name:   "leaderboard",
				Usage:  "rank feed authors by likes received",
				Action: runLeaderboard,
			},
			{
				Name:      "comments",
				Usage:     "print the address's comments on a post",
				ArgsUsage: "<post id>",
				Action:    runComments,
			},
			{
				Name:      "following",
				Usage:     "report whether the address follows target",
				ArgsUsage: "<target address>",
				Action:    runFollowing,
			},
			{
				Name:      "search",
				Usage:     "search feed authors by username or address",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 5,
					},
				},
				Action: runSearch,
			},
			{
				Name:   "watch",
				Usage:  "poll for new content until interrupted",
				Action: runWatch,
			},
			{
				Name:      "pin",
				Usage:     "pin a media file and print its ipfs uri",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "pinata-endpoint",
						EnvVars: []string{"LEDGERFEED_PINATA_ENDPOINT"},
						Value:   pinning.DefaultEndpoint,
					},
					&cli.StringFlag{
						Name:     "pinata-jwt",
						EnvVars:  []string{"LEDGERFEED_PINATA_JWT"},
						Required: true,
					},
				},
				Action: runPin,
			},
		},
		ErrWriter: os.Stderr,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Context) *slog.Logger {
	var level slog.Level
	switch cmd.String("log-level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func configFromFlags(cmd *cli.Context) ledgerfeed.Config {
	cfg := ledgerfeed.DefaultConfig(cmd.String("network"))
	if u := cmd.String("rpc-url"); u != "" {
		cfg.RPCURL = u
	}
	if id := cmd.String("package-id"); id != "" {
		cfg.PackageID = id
	}
	cfg.FeedLimit = cmd.Int("feed-limit")
	cfg.RequestsPerSecond = cmd.Int("requests-per-second")
	return cfg
}

// openSession builds and starts a read-only session.
func openSession(cmd *cli.Context) (*ledgerfeed.Session, *slog.Logger, error) {
	l := newLogger(cmd)

	s, err := ledgerfeed.New(cmd.Context, &ledgerfeed.Args{
		Logger:      l,
		Config:      configFromFlags(cmd),
		Viewer:      cmd.String("address"),
		MetricsAddr: cmd.String("metrics-addr"),
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.Start(cmd.Context); err != nil {
		s.Close()
		return nil, nil, err
	}

	return s, l, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type feedItem struct {
	models.Post
	Text  string  `json:"text"`
	Image *string `json:"image,omitempty"`
}

var runFeed = func(cmd *cli.Context) error {
	var since time.Time
	if s := cmd.String("since"); s != "" {
		t, err := dateparse.ParseAny(s)
		if err != nil {
			return fmt.Errorf("failed to parse --since: %w", err)
		}
		since = t
	}

	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	posts := s.Store().Feed()
	if author := cmd.String("author"); author != "" {
		posts = s.Aggregator().AuthorPosts(author)
	}

	items := []feedItem{}
	for _, p := range posts {
		if !since.IsZero() && p.CreatedTime().Before(since) {
			continue
		}
		body := p.Body()
		items = append(items, feedItem{Post: p, Text: body.Text, Image: body.Image})
	}

	return printJSON(items)
}

var runLeaderboard = func(cmd *cli.Context) error {
	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return printJSON(s.Aggregator().Leaderboard(cmd.Context))
}

var runComments = func(cmd *cli.Context) error {
	postID := cmd.Args().First()
	if postID == "" {
		return fmt.Errorf("post id required")
	}
	if cmd.String("address") == "" {
		return fmt.Errorf("--address required to read comments")
	}

	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return printJSON(s.Aggregator().CommentThread(cmd.Context, postID))
}

var runFollowing = func(cmd *cli.Context) error {
	target := cmd.Args().First()
	if target == "" {
		return fmt.Errorf("target address required")
	}

	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	following := s.Aggregator().FollowStatus(cmd.Context, s.Store().Viewer(), target)
	return printJSON(map[string]any{
		"viewer":    s.Store().Viewer(),
		"target":    target,
		"following": following,
	})
}

var runSearch = func(cmd *cli.Context) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("query required")
	}

	s, _, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return printJSON(s.Aggregator().SearchProfiles(cmd.Context, query, cmd.Int("limit")))
}

var runWatch = func(cmd *cli.Context) error {
	ctx, cancel := context.WithCancel(cmd.Context)
	defer cancel()

	s, l, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	go func() {
		exitSignals := make(chan os.Signal, 1)
		signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)

		sig := <-exitSignals

		l.Info("received os exit signal", "signal", sig)
		cancel()
	}()

	cfg := s.Config()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	last := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n := s.Store().NewContentCount()
			if n == last {
				continue
			}
			last = n
			if n > 0 {
				l.Info("new content available", "count", n, "head", s.Store().FeedHead())
			}
		}
	}
}

var runPin = func(cmd *cli.Context) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("file required")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	c := pinning.NewClient(cmd.String("pinata-endpoint"), cmd.String("pinata-jwt"))
	id, err := c.Pin(cmd.Context, filepath.Base(path), f)
	if err != nil {
		return err
	}

	fmt.Println(pinning.URI(id))
	return nil
}
