// Package bot connects Telegram updates to the download pipeline: a link
// message becomes a quality prompt, a button choice becomes a download, and
// the result comes back as a chat attachment.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/iamrony27/downloaderbot/internals/config"
	"github.com/iamrony27/downloaderbot/internals/downloader"
	"github.com/iamrony27/downloaderbot/internals/pool"
	"github.com/iamrony27/downloaderbot/internals/session"
)

// sender is the slice of the bot API the handlers need. *tgbotapi.BotAPI
// satisfies it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// mediaDownloader is what the handlers need from the extraction engine.
type mediaDownloader interface {
	Probe(ctx context.Context, url string) (*downloader.Info, error)
	Download(ctx context.Context, req downloader.Request) (string, error)
}

// Bot holds everything the handlers work with. There is no package-level
// state; tests build the struct directly with fakes.
type Bot struct {
	api      *tgbotapi.BotAPI
	tg       sender
	dl       mediaDownloader
	cfg      config.Config
	sessions *session.Store
	pool     *pool.Pool
	log      *zap.SugaredLogger
	username string
}

// New builds the bot around an authenticated API client.
func New(api *tgbotapi.BotAPI, cfg config.Config, dl *downloader.Client, log *zap.SugaredLogger) *Bot {
	if log == nil {
		log = zap.S().Named("bot")
	}
	return &Bot{
		api:      api,
		tg:       api,
		dl:       dl,
		cfg:      cfg,
		sessions: session.New(),
		pool:     pool.New(cfg.Workers),
		log:      log,
		username: api.Self.UserName,
	}
}

// Run consumes updates until ctx is done. Each update gets its own
// goroutine; blocking work inside the handlers goes through the worker pool.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Infow("listening for updates", "username", b.username)

	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(update.Message)
	case update.Message != nil && update.Message.Text != "":
		b.handleLink(ctx, update.Message)
	}
}

// send pushes a chattable and logs a failure instead of surfacing it.
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.tg.Send(c); err != nil {
		b.log.Warnw("send failed", "error", err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.tg.Request(c); err != nil {
		b.log.Warnw("request failed", "error", err)
	}
}

// editStatus rewrites the status message text. Edit failures are logged and
// otherwise ignored.
func (b *Bot) editStatus(chatID int64, messageID int, text string) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, text))
}
