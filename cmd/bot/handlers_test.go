package bot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iamrony27/downloaderbot/internals/config"
	"github.com/iamrony27/downloaderbot/internals/downloader"
	"github.com/iamrony27/downloaderbot/internals/pool"
	"github.com/iamrony27/downloaderbot/internals/progress"
	"github.com/iamrony27/downloaderbot/internals/session"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	lastID   int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.lastID++
	return tgbotapi.Message{MessageID: f.lastID}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeSender) editTexts() []string {
	var out []string
	for _, e := range f.edits() {
		out = append(out, e.Text)
	}
	return out
}

func (f *fakeSender) videos() []tgbotapi.VideoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.VideoConfig
	for _, c := range f.sent {
		if v, ok := c.(tgbotapi.VideoConfig); ok {
			out = append(out, v)
		}
	}
	return out
}

func (f *fakeSender) audios() []tgbotapi.AudioConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.AudioConfig
	for _, c := range f.sent {
		if a, ok := c.(tgbotapi.AudioConfig); ok {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeSender) deletes() []tgbotapi.DeleteMessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DeleteMessageConfig
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

// fakeEngine stands in for the yt-dlp client. Download writes fileName with
// fileSize bytes into the bot's download dir and returns its path.
type fakeEngine struct {
	mu        sync.Mutex
	dir       string
	info      *downloader.Info
	probeErr  error
	fileName  string
	fileSize  int
	dlErr     error
	probes    []string
	downloads []downloader.Request
}

func (f *fakeEngine) Probe(ctx context.Context, url string) (*downloader.Info, error) {
	f.mu.Lock()
	f.probes = append(f.probes, url)
	f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.info, nil
}

func (f *fakeEngine) Download(ctx context.Context, req downloader.Request) (string, error) {
	f.mu.Lock()
	f.downloads = append(f.downloads, req)
	f.mu.Unlock()
	if req.OnProgress != nil {
		req.OnProgress(progress.Event{Status: progress.StatusDownloading, Downloaded: 1, Total: 4})
	}
	if f.dlErr != nil {
		return "", f.dlErr
	}
	if req.OnProgress != nil {
		req.OnProgress(progress.Event{Status: progress.StatusFinished})
	}
	path := filepath.Join(f.dir, f.fileName)
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), f.fileSize), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeEngine) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.downloads)
}

func newTestBot(t *testing.T, eng *fakeEngine) (*Bot, *fakeSender) {
	t.Helper()
	fs := &fakeSender{}
	cfg := config.Default()
	cfg.Token = "test-token"
	cfg.DownloadDir = t.TempDir()
	if eng != nil {
		eng.dir = cfg.DownloadDir
	}
	b := &Bot{
		tg:       fs,
		dl:       eng,
		cfg:      cfg,
		sessions: session.New(),
		pool:     pool.New(cfg.Workers),
		log:      zap.NewNop().Sugar(),
		username: "testbot",
	}
	return b, fs
}

func linkMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 1},
		Chat:      &tgbotapi.Chat{ID: 10},
		Text:      text,
	}
}

func callbackQuery(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		Data: data,
		From: &tgbotapi.User{ID: 1},
		Message: &tgbotapi.Message{
			MessageID: 100,
			Chat:      &tgbotapi.Chat{ID: 10},
		},
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain title", "plain title"},
		{"*bold* _it_ `code`", "bold it code"},
		{"back`tick", "backtick"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), "sanitize(%q)", tt.in)
	}
}

func TestHandleLinkRejectsBadURL(t *testing.T) {
	for _, text := range []string{"hello", "ftp://example.com/file", "www.example.com"} {
		eng := &fakeEngine{}
		b, fs := newTestBot(t, eng)

		b.handleLink(context.Background(), linkMessage(text))

		msgs := fs.messages()
		require.Len(t, msgs, 1, "input %q", text)
		assert.Equal(t, msgInvalidURL, msgs[0].Text)
		assert.Empty(t, eng.probes, "probe must not run for %q", text)
	}
}

func TestHandleLinkOffersChoices(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{
		info: &downloader.Info{
			ID:       "abc",
			Title:    "My *Video*",
			Uploader: "chan",
			Duration: 61,
			Formats: []downloader.Format{
				{Height: 1080, Vcodec: "avc1"},
				{Height: 720, Vcodec: "avc1"},
			},
		},
	}
	b, fs := newTestBot(t, eng)

	b.handleLink(context.Background(), linkMessage("https://example.com/watch?v=abc"))

	msgs := fs.messages()
	require.Len(t, msgs, 1)
	assert.Equal(msgAnalyzing, msgs[0].Text)
	assert.Equal(1, msgs[0].ReplyToMessageID)

	edits := fs.edits()
	require.Len(t, edits, 1)
	assert.Equal(tgbotapi.ModeMarkdown, edits[0].ParseMode)
	require.NotNil(t, edits[0].ReplyMarkup)
	assert.Contains(buttonData(*edits[0].ReplyMarkup), "video_1080")
	assert.Contains(edits[0].Text, "My Video")

	entry, ok := b.sessions.Get(1)
	require.True(t, ok)
	assert.Equal("https://example.com/watch?v=abc", entry.URL)
	assert.Equal("My *Video*", entry.Title)
}

func TestHandleLinkProbeFailure(t *testing.T) {
	eng := &fakeEngine{probeErr: errors.New("no `formats` found")}
	b, fs := newTestBot(t, eng)

	b.handleLink(context.Background(), linkMessage("https://example.com/broken"))

	texts := fs.editTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Failed to analyze")
	assert.NotContains(t, texts[0], "`")

	_, ok := b.sessions.Get(1)
	assert.False(t, ok, "failed probe must not create a session")
}

func TestCallbackCancelDeletesPrompt(t *testing.T) {
	eng := &fakeEngine{}
	b, fs := newTestBot(t, eng)

	b.handleCallback(context.Background(), callbackQuery("cancel"))

	deletes := fs.deletes()
	require.Len(t, deletes, 1)
	assert.Equal(t, 100, deletes[0].MessageID)
	assert.Zero(t, eng.downloadCount())
}

func TestCallbackSessionExpired(t *testing.T) {
	eng := &fakeEngine{}
	b, fs := newTestBot(t, eng)

	b.handleCallback(context.Background(), callbackQuery("video_720"))

	texts := fs.editTexts()
	require.Len(t, texts, 1)
	assert.Equal(t, msgSessionExpired, texts[0])
	assert.Zero(t, eng.downloadCount(), "no session means no download")
}

func TestCallbackUnknownData(t *testing.T) {
	eng := &fakeEngine{}
	b, fs := newTestBot(t, eng)

	b.handleCallback(context.Background(), callbackQuery("format|https://example.com"))

	assert.Empty(t, fs.edits())
	assert.Empty(t, fs.deletes())
	assert.Zero(t, eng.downloadCount())
}

func TestDownloadVideoSuccess(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{fileName: "abc.mp4", fileSize: 64}
	b, fs := newTestBot(t, eng)
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "My *Video*"})

	b.handleCallback(context.Background(), callbackQuery("video_720"))

	require.Equal(t, 1, eng.downloadCount())
	req := eng.downloads[0]
	assert.Equal("https://example.com/v", req.URL)
	assert.Equal("best[height<=720][ext=mp4]/best[height<=720]", req.Format)
	assert.False(req.AudioOnly)
	assert.Equal(b.cfg.MaxFileSize, req.MaxBytes)

	texts := fs.editTexts()
	assert.Contains(texts, msgInitializing)
	assert.Contains(texts, msgUploading)
	assert.Contains(texts, "✅ Download complete! Processing...")

	videos := fs.videos()
	require.Len(t, videos, 1)
	assert.Contains(videos[0].Caption, "My Video")
	assert.Contains(videos[0].Caption, "@testbot")
	assert.NotContains(videos[0].Caption, "*")
	assert.True(videos[0].SupportsStreaming)

	deletes := fs.deletes()
	require.Len(t, deletes, 1)
	assert.Equal(100, deletes[0].MessageID)

	leftovers, err := filepath.Glob(filepath.Join(b.cfg.DownloadDir, "abc.*"))
	require.NoError(t, err)
	assert.Empty(leftovers, "file must be removed after delivery")
}

func TestDownloadAudioSuccess(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{fileName: "abc.mp3", fileSize: 64}
	b, fs := newTestBot(t, eng)
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "Song _Name_"})

	b.handleCallback(context.Background(), callbackQuery("audio_best"))

	require.Equal(t, 1, eng.downloadCount())
	req := eng.downloads[0]
	assert.Equal("bestaudio/best", req.Format)
	assert.True(req.AudioOnly)

	audios := fs.audios()
	require.Len(t, audios, 1)
	assert.Equal("Song Name", audios[0].Title)
	assert.Contains(audios[0].Caption, "Song Name")
	assert.Empty(fs.videos())

	leftovers, err := filepath.Glob(filepath.Join(b.cfg.DownloadDir, "abc.*"))
	require.NoError(t, err)
	assert.Empty(leftovers)
}

func TestDownloadCleanupSpecialCharacters(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{fileName: "clip [1*.mp4", fileSize: 64}
	b, fs := newTestBot(t, eng)
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "Odd"})
	unrelated := filepath.Join(b.cfg.DownloadDir, "clip _1x.mp4")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o644))

	b.handleCallback(context.Background(), callbackQuery("video_720"))

	require.Len(t, fs.videos(), 1)
	_, err := os.Stat(filepath.Join(b.cfg.DownloadDir, "clip [1*.mp4"))
	assert.True(os.IsNotExist(err), "realized file must be removed after delivery")
	_, err = os.Stat(unrelated)
	assert.NoError(err, "unrelated files must survive cleanup")
}

func TestDownloadCompletesWithSingleWorker(t *testing.T) {
	eng := &fakeEngine{fileName: "abc.mp4", fileSize: 64}
	b, fs := newTestBot(t, eng)
	b.pool = pool.New(1)
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "One"})

	b.handleCallback(context.Background(), callbackQuery("video_720"))

	require.Len(t, fs.videos(), 1, "delivery must not wait on a second pool permit")
	assert.Contains(t, fs.editTexts(), msgUploading)
	assert.Len(t, fs.deletes(), 1)
}

func TestDownloadTooLarge(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{fileName: "abc.mp4", fileSize: 64}
	b, fs := newTestBot(t, eng)
	b.cfg.MaxFileSize = 10
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "Big"})

	b.handleCallback(context.Background(), callbackQuery("video_best"))

	texts := fs.editTexts()
	assert.Contains(strings.Join(texts, "\n"), "too large")
	assert.NotContains(texts, msgUploading, "oversized file must not reach the upload phase")

	assert.Empty(fs.videos(), "oversized file must not be uploaded")
	assert.Empty(fs.audios())
	assert.Empty(fs.deletes(), "status message stays visible on failure")

	leftovers, err := filepath.Glob(filepath.Join(b.cfg.DownloadDir, "abc.*"))
	require.NoError(t, err)
	assert.Empty(leftovers, "oversized file must be deleted")
}

func TestDownloadFailure(t *testing.T) {
	assert := assert.New(t)
	eng := &fakeEngine{dlErr: errors.New("network `reset`")}
	b, fs := newTestBot(t, eng)
	b.sessions.Put(1, session.Entry{URL: "https://example.com/v", Title: "X"})

	b.handleCallback(context.Background(), callbackQuery("video_720"))

	texts := fs.editTexts()
	require.NotEmpty(t, texts)
	last := texts[len(texts)-1]
	assert.Contains(last, "Error occurred")
	assert.NotContains(last, "`")

	assert.Empty(fs.videos())
	assert.Empty(fs.audios())
	assert.Empty(fs.deletes(), "status message stays visible on failure")
}
