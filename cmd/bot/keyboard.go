package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iamrony27/downloaderbot/internals/downloader"
)

// maxQualityChoices caps how many height buttons one prompt offers.
const maxQualityChoices = 4

const (
	choiceCancel    = "cancel"
	choiceAudio     = "audio_best"
	choiceBestVideo = "video_best"
	videoPrefix     = "video_"
)

// qualityKeyboard builds the choice buttons: the highest probed heights
// first, a generic best option when none are known, then audio and cancel.
func qualityKeyboard(heights []int) tgbotapi.InlineKeyboardMarkup {
	if len(heights) > maxQualityChoices {
		heights = heights[:maxQualityChoices]
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, h := range heights {
		btn := tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("🎬 %dp", h), videoPrefix+strconv.Itoa(h))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	if len(heights) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎬 Best quality", choiceBestVideo)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🎵 Audio (MP3)", choiceAudio)))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", choiceCancel)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// choice is a parsed callback token.
type choice struct {
	cancel bool
	audio  bool
	// height is the requested ceiling; 0 means best available.
	height int
}

func parseChoice(data string) (choice, bool) {
	switch {
	case data == choiceCancel:
		return choice{cancel: true}, true
	case data == choiceAudio:
		return choice{audio: true}, true
	case data == choiceBestVideo:
		return choice{}, true
	case strings.HasPrefix(data, videoPrefix):
		h, err := strconv.Atoi(strings.TrimPrefix(data, videoPrefix))
		if err != nil || h <= 0 {
			return choice{}, false
		}
		return choice{height: h}, true
	}
	return choice{}, false
}

// formatPrompt renders the message shown above the quality keyboard.
func formatPrompt(info *downloader.Info) string {
	title := info.Title
	if title == "" {
		title = "Unknown"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎬 *%s*\n", sanitize(title))
	if info.Uploader != "" {
		fmt.Fprintf(&sb, "👤 %s\n", sanitize(info.Uploader))
	}
	if info.Duration > 0 {
		fmt.Fprintf(&sb, "⏱ %s\n", info.DurationString())
	}
	sb.WriteString("\nChoose a format:")
	return sb.String()
}
