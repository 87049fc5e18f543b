package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iamrony27/downloaderbot/internals/downloader"
	"github.com/iamrony27/downloaderbot/internals/pool"
	"github.com/iamrony27/downloaderbot/internals/progress"
	"github.com/iamrony27/downloaderbot/internals/session"
)

const (
	msgInvalidURL     = "❌ Please send a valid link starting with http:// or https://."
	msgAnalyzing      = "🔍 Analyzing link..."
	msgSessionExpired = "❌ Session expired. Please send the link again."
	msgInitializing   = "🚀 Initializing download..."
	msgUploading      = "📤 Uploading to Telegram..."
)

// markdownStripper removes the characters Telegram's Markdown parser treats
// as formatting. Titles and error strings pass through it before being shown.
var markdownStripper = strings.NewReplacer("*", "", "_", "", "`", "")

func sanitize(s string) string {
	return markdownStripper.Replace(s)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.send(tgbotapi.NewMessage(msg.Chat.ID,
			"👋 Send me a video link and I'll download it for you.\n"+
				"You pick the quality, I deliver the file."))
	default:
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Just send me a link to get started."))
	}
}

// handleLink is the analyze phase: validate the URL, probe it off the update
// goroutine, remember it for the user and offer the quality choices.
func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	link := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		reply := tgbotapi.NewMessage(msg.Chat.ID, msgInvalidURL)
		reply.ReplyToMessageID = msg.MessageID
		b.send(reply)
		return
	}

	notice := tgbotapi.NewMessage(msg.Chat.ID, msgAnalyzing)
	notice.ReplyToMessageID = msg.MessageID
	sent, err := b.tg.Send(notice)
	if err != nil {
		b.log.Warnw("send failed", "error", err)
		return
	}

	out := <-pool.Submit(ctx, b.pool, func(ctx context.Context) (*downloader.Info, error) {
		return b.dl.Probe(ctx, link)
	})
	if out.Err != nil {
		b.log.Warnw("probe failed", "url", link, "error", out.Err)
		b.editStatus(msg.Chat.ID, sent.MessageID, "❌ Failed to analyze link: "+sanitize(out.Err.Error()))
		return
	}
	info := out.Value

	title := info.Title
	if title == "" {
		title = "Unknown"
	}
	b.sessions.Put(msg.From.ID, session.Entry{URL: link, Title: title})

	kb := qualityKeyboard(info.Heights())
	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      msg.Chat.ID,
			MessageID:   sent.MessageID,
			ReplyMarkup: &kb,
		},
		Text:      formatPrompt(info),
		ParseMode: tgbotapi.ModeMarkdown,
	}
	b.send(edit)
}

// handleCallback is the choice phase. The prompt message becomes the status
// message for the download that follows.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	b.request(tgbotapi.NewCallback(query.ID, ""))
	if query.Message == nil {
		return
	}

	chatID := query.Message.Chat.ID
	statusID := query.Message.MessageID

	c, ok := parseChoice(query.Data)
	if !ok {
		b.log.Warnw("unknown callback data", "data", query.Data)
		return
	}
	if c.cancel {
		b.request(tgbotapi.NewDeleteMessage(chatID, statusID))
		return
	}

	entry, ok := b.sessions.Get(query.From.ID)
	if !ok {
		b.editStatus(chatID, statusID, msgSessionExpired)
		return
	}

	b.editStatus(chatID, statusID, msgInitializing)
	b.runDownload(ctx, chatID, statusID, entry, c)
}

// runDownload owns one download from request to delivery. The status message
// is edited through each phase and deleted on success; local files are
// removed on every exit path once they exist.
func (b *Bot) runDownload(ctx context.Context, chatID int64, statusID int, entry session.Entry, c choice) {
	log := b.log.With("download_id", uuid.NewString(), "url", entry.URL)

	format := downloader.VideoFormat(c.height)
	if c.audio {
		format = downloader.AudioFormat()
	}

	reporter := progress.NewReporter(progress.Config{
		Editor: statusEditor{tg: b.tg, chatID: chatID, messageID: statusID},
		Log:    log,
	})
	defer reporter.Close()

	req := downloader.Request{
		URL:        entry.URL,
		Format:     format,
		AudioOnly:  c.audio,
		MaxBytes:   b.cfg.MaxFileSize,
		OnProgress: reporter.Publish,
	}

	out := <-pool.Submit(ctx, b.pool, func(ctx context.Context) (string, error) {
		return b.dl.Download(ctx, req)
	})

	// Flush the final progress edit before the lifecycle edits below.
	reporter.Close()

	if out.Err != nil {
		log.Warnw("download failed", "error", out.Err)
		b.editStatus(chatID, statusID, "❌ Error occurred: "+sanitize(out.Err.Error()))
		return
	}
	path := out.Value
	defer b.removeArtifacts(path, log)

	stat, err := os.Stat(path)
	if err != nil {
		log.Warnw("stat failed", "file", path, "error", err)
		b.editStatus(chatID, statusID, "❌ Error occurred: "+sanitize(err.Error()))
		return
	}
	if stat.Size() > b.cfg.MaxFileSize {
		log.Warnw("file exceeds size ceiling", "size", stat.Size(), "limit", b.cfg.MaxFileSize)
		b.editStatus(chatID, statusID, fmt.Sprintf(
			"❌ File is too large (>%dMB). Try a lower quality.", b.cfg.MaxFileSize>>20))
		return
	}

	b.editStatus(chatID, statusID, msgUploading)

	if err := b.upload(chatID, path, entry, c.audio); err != nil {
		log.Warnw("upload failed", "error", err)
		b.editStatus(chatID, statusID, "❌ Error occurred: "+sanitize(err.Error()))
		return
	}

	b.request(tgbotapi.NewDeleteMessage(chatID, statusID))
	log.Infow("delivered", "file", filepath.Base(path), "size", stat.Size())
}

func (b *Bot) upload(chatID int64, path string, entry session.Entry, audio bool) error {
	caption := fmt.Sprintf("🎬 %s\nDownload by @%s", sanitize(entry.Title), b.username)
	if audio {
		a := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
		a.Caption = caption
		a.Title = sanitize(entry.Title)
		_, err := b.tg.Send(a)
		return err
	}
	v := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	v.Caption = caption
	v.SupportsStreaming = true
	_, err := b.tg.Send(v)
	return err
}

// removeArtifacts drops the realized file and any fragments sharing its
// media ID.
func (b *Bot) removeArtifacts(path string, log *zap.SugaredLogger) {
	if path == "" {
		return
	}
	if err := downloader.RemoveArtifacts(path); err != nil {
		log.Warnw("cleanup failed", "error", err)
	}
}

// statusEditor adapts the status message into the progress reporter's
// editor.
type statusEditor struct {
	tg        sender
	chatID    int64
	messageID int
}

func (e statusEditor) EditText(text string) error {
	_, err := e.tg.Send(tgbotapi.NewEditMessageText(e.chatID, e.messageID, text))
	return err
}
