package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zulandar/polyglot/internal/chat"
	"golang.org/x/text/language"
)

// DefaultPreviewLength is the number of runes of the replied-to message shown
// in a reply preview.
const DefaultPreviewLength = 100

// previewLabels holds the fixed strings of a reply preview in one language.
type previewLabels struct {
	ReplyingTo string
	Attachment string
	Sticker    string
}

// labelTags and labelTable are parallel; the first entry is the fallback.
var (
	labelTags = []language.Tag{
		language.English,
		language.Japanese,
		language.Korean,
		language.SimplifiedChinese,
		language.TraditionalChinese,
		language.French,
		language.German,
		language.Spanish,
		language.Portuguese,
		language.Russian,
	}
	labelTable = []previewLabels{
		{ReplyingTo: "Replying to", Attachment: "[Attachment]", Sticker: "[Sticker]"},
		{ReplyingTo: "返信先:", Attachment: "[添付ファイル]", Sticker: "[スタンプ]"},
		{ReplyingTo: "답장 대상:", Attachment: "[첨부 파일]", Sticker: "[스티커]"},
		{ReplyingTo: "回复", Attachment: "[附件]", Sticker: "[贴纸]"},
		{ReplyingTo: "回覆", Attachment: "[附件]", Sticker: "[貼圖]"},
		{ReplyingTo: "En réponse à", Attachment: "[Pièce jointe]", Sticker: "[Autocollant]"},
		{ReplyingTo: "Antwort an", Attachment: "[Anhang]", Sticker: "[Sticker]"},
		{ReplyingTo: "Respondiendo a", Attachment: "[Archivo adjunto]", Sticker: "[Sticker]"},
		{ReplyingTo: "Respondendo a", Attachment: "[Anexo]", Sticker: "[Figurinha]"},
		{ReplyingTo: "В ответ", Attachment: "[Вложение]", Sticker: "[Стикер]"},
	}
	labelMatcher = language.NewMatcher(labelTags)
)

// labelsFor picks the preview labels closest to lang, falling back to English.
func labelsFor(lang string) previewLabels {
	tag, err := language.Parse(lang)
	if err != nil {
		return labelTable[0]
	}
	_, idx, conf := labelMatcher.Match(tag)
	if conf == language.No {
		return labelTable[0]
	}
	return labelTable[idx]
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}

// buildPreview renders the replied-to copy ref as an embed in targetLang.
func buildPreview(ref *chat.Message, targetLang string, maxLen int) chat.Embed {
	labels := labelsFor(targetLang)

	desc := truncate(ref.Content, maxLen)
	if desc == "" {
		switch {
		case len(ref.Stickers) > 0:
			desc = labels.Sticker
		case len(ref.Attachments) > 0:
			desc = labels.Attachment
		}
	}

	embed := chat.Embed{
		AuthorName:    labels.ReplyingTo + " " + ref.Author.Name(),
		AuthorIconURL: ref.Author.AvatarURL,
		Description:   desc,
	}
	if ref.GuildID != "" {
		embed.URL = fmt.Sprintf("https://discord.com/channels/%s/%s/%s", ref.GuildID, ref.ChannelID, ref.ID)
	}
	return embed
}

// sameLanguage reports whether two language codes name the same language,
// so translating between them would be a no-op.
func sameLanguage(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	return errA == nil && errB == nil && ta == tb
}
