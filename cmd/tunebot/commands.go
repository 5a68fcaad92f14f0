package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/sglre6355/tunebot/internal/bot"
	"github.com/sglre6355/tunebot/internal/logging"
	"github.com/sglre6355/tunebot/internal/metrics"
	"github.com/sglre6355/tunebot/internal/modules/player"
	"github.com/sglre6355/tunebot/internal/modules/player/application/ports"
	"github.com/sglre6355/tunebot/internal/modules/player/application/usecases"
	"github.com/sglre6355/tunebot/internal/modules/player/domain"
	"github.com/sglre6355/tunebot/internal/modules/player/infrastructure/tunehub"
)

// app holds state shared by the commands.
type app struct {
	out    io.Writer
	config *bot.Config
}

func newApp(out io.Writer) *cli.Command {
	a := &app{out: out}

	return &cli.Command{
		Name:    "tunebot",
		Usage:   "Discord music bot with multi-provider stream resolution",
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
				Sources: cli.EnvVars("TUNEBOT_CONFIG"),
			},
		},
		Before: a.before,
		Action: a.runBot,
		Commands: []*cli.Command{
			{
				Name:   "bot",
				Usage:  "Run the Discord bot (default)",
				Action: a.runBot,
			},
			{
				Name:  "resolve",
				Usage: "Resolve a playable stream URL for a track",
				Flags: []cli.Flag{
					sourceFlag(true),
					idFlag(),
					&cli.StringFlag{
						Name:  "br",
						Usage: "Quality tier (128k, 320k, flac, flac24bit); omit to try 320k, flac, then 128k",
					},
				},
				Action: a.resolve,
			},
			{
				Name:   "lyric",
				Usage:  "Fetch the LRC lyric of a track",
				Flags:  []cli.Flag{sourceFlag(true), idFlag()},
				Action: a.lyric,
			},
			{
				Name:  "search",
				Usage: "Search providers for tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "keyword",
						Aliases:  []string{"k"},
						Usage:    "Search keyword",
						Required: true,
					},
					sourceFlag(false),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page",
						Value: 1,
					},
				},
				Action: a.search,
			},
		},
	}
}

func sourceFlag(required bool) cli.Flag {
	usage := "Provider (netease, kuwo, qq)"
	if !required {
		usage += "; omit to search every provider"
	}
	return &cli.StringFlag{
		Name:     "source",
		Aliases:  []string{"s"},
		Usage:    usage,
		Required: required,
	}
}

func idFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "Provider track ID",
		Required: true,
	}
}

// before loads the configuration and installs the logger.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := bot.LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return ctx, err
	}
	a.config = cfg
	return ctx, nil
}

// runBot runs the bot, and the metrics server when configured, until ctx is done.
func (a *app) runBot(ctx context.Context, _ *cli.Command) error {
	slog.Info("starting tunebot", "version", version)

	g, ctx := errgroup.WithContext(ctx)

	if a.config.MetricsAddr != "" {
		server := metrics.NewServer(a.config.MetricsAddr)
		g.Go(func() error {
			return server.Run(ctx)
		})
	}

	b := bot.NewBot(a.config)
	b.LoadModules()

	g.Go(func() error {
		if err := b.Start(); err != nil {
			_ = b.Stop()
			return fmt.Errorf("failed to start bot: %w", err)
		}

		<-ctx.Done()

		slog.Info("received termination signal, shutting down")
		if err := b.Stop(); err != nil {
			slog.Error("failed to shutdown", "error", err)
		}
		slog.Info("completed bot shutdown")
		return nil
	})

	return g.Wait()
}

func (a *app) client() (*tunehub.Client, error) {
	cfg, err := player.LoadConfig(a.config.Path)
	if err != nil {
		return nil, err
	}
	return tunehub.NewClient(tunehub.NewTransport(cfg.TransportConfig())), nil
}

func (a *app) resolve(ctx context.Context, cmd *cli.Command) error {
	source, err := parseSource(cmd.String("source"))
	if err != nil {
		return err
	}
	id := cmd.String("id")

	client, err := a.client()
	if err != nil {
		return err
	}
	resolver := usecases.NewStreamResolver(client, nil)

	var locator string
	var ok bool
	if br := cmd.String("br"); br != "" {
		bitrate, valid := domain.ParseBitRate(br)
		if !valid {
			return fmt.Errorf("unknown bitrate %q", br)
		}
		locator, ok = resolver.ResolveStreamURL(ctx, source, id, bitrate)
	} else {
		locator, ok = resolver.ResolveBestURL(ctx, source, id)
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", usecases.ErrNoPlaybackURL, source, id)
	}

	_, err = fmt.Fprintln(a.out, locator)
	return err
}

func (a *app) lyric(ctx context.Context, cmd *cli.Command) error {
	source, err := parseSource(cmd.String("source"))
	if err != nil {
		return err
	}

	client, err := a.client()
	if err != nil {
		return err
	}

	text, err := client.Lyric(ctx, source, cmd.String("id"))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.out, text)
	return err
}

func (a *app) search(ctx context.Context, cmd *cli.Command) error {
	var source domain.MusicSource
	if raw := cmd.String("source"); raw != "" {
		var err error
		if source, err = parseSource(raw); err != nil {
			return err
		}
	}

	client, err := a.client()
	if err != nil {
		return err
	}

	tracks, err := usecases.NewListingService(client).Search(ctx, usecases.SearchInput{
		Keyword: cmd.String("keyword"),
		Source:  source,
		Page: ports.Page{
			Limit: cmd.Int("limit"),
			Page:  cmd.Int("page"),
		},
	})
	if errors.Is(err, usecases.ErrNoResults) {
		_, err = fmt.Fprintln(a.out, "no results")
		return err
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tID\tNAME\tARTIST\tALBUM")
	for _, t := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Source, t.ID, t.Name, t.Artist, t.Album)
	}
	return tw.Flush()
}

func parseSource(raw string) (domain.MusicSource, error) {
	source, ok := domain.ParseMusicSource(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", usecases.ErrUnknownSource, raw)
	}
	return source, nil
}
