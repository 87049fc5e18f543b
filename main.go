package main

import (
	"fmt"
	"os"
	"os/signal"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iamrony27/downloaderbot/cmd/bot"
	"github.com/iamrony27/downloaderbot/internals/config"
	"github.com/iamrony27/downloaderbot/internals/downloader"
)

func main() {
	// Values from a local .env file become visible to the flag env lookups.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "downloaderbot",
		Usage: "Telegram bot that downloads media links and sends them back",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "token",
				Usage:    "Telegram bot API token",
				EnvVars:  []string{"BOT_TOKEN", "BOTKEY"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "download-dir",
				Usage:   "directory downloads land in",
				Value:   config.DefaultDownloadDir,
				EnvVars: []string{"DOWNLOAD_DIR"},
			},
			&cli.StringFlag{
				Name:    "cookies",
				Usage:   "cookies file handed to yt-dlp",
				EnvVars: []string{"YTDLP_COOKIES"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "verbose bot API logging",
				EnvVars: []string{"BOT_DEBUG"},
			},
		},
		HideHelpCommand: true,
		Action:          run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.Token = c.String("token")
	cfg.DownloadDir = c.String("download-dir")
	cfg.CookiesFile = c.String("cookies")
	cfg.Debug = c.Bool("debug")

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDownloadDir(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("connect to bot API: %w", err)
	}
	api.Debug = cfg.Debug
	zap.S().Infof("authorized as @%s", api.Self.UserName)

	dl := downloader.New(cfg.DownloadDir, cfg.CookiesFile, zap.S().Named("downloader"))
	b := bot.New(api, cfg, dl, zap.S().Named("bot"))
	return b.Run(ctx)
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}
