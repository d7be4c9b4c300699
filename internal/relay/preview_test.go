package relay

import (
	"strings"
	"testing"

	"github.com/zulandar/polyglot/internal/chat"
)

func TestLabelsFor(t *testing.T) {
	tests := []struct {
		lang string
		want string
	}{
		{"en", "Replying to"},
		{"ja", "返信先:"},
		{"ko", "답장 대상:"},
		{"zh-Hans", "回复"},
		{"zh-TW", "回覆"},
		{"fr-CA", "En réponse à"},
		{"de", "Antwort an"},
		{"pt-BR", "Respondendo a"},
		{"not a tag!", "Replying to"},
		{"", "Replying to"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			if got := labelsFor(tt.lang).ReplyingTo; got != tt.want {
				t.Errorf("labelsFor(%q).ReplyingTo = %q, want %q", tt.lang, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello…"},
		{"multibyte", "こんにちは世界", 5, "こんにちは…"},
		{"no limit", "hello", 0, "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestBuildPreview(t *testing.T) {
	ref := &chat.Message{
		ID: "m1", ChannelID: "c1", GuildID: "g1",
		Author:  chat.Author{ID: "u1", Username: "bob", AvatarURL: "https://cdn/bob.png"},
		Content: strings.Repeat("a", 150),
	}
	e := buildPreview(ref, "en", 100)
	if e.AuthorName != "Replying to bob" {
		t.Errorf("AuthorName = %q", e.AuthorName)
	}
	if e.AuthorIconURL != "https://cdn/bob.png" {
		t.Errorf("AuthorIconURL = %q", e.AuthorIconURL)
	}
	if e.Description != strings.Repeat("a", 100)+"…" {
		t.Errorf("Description length = %d", len(e.Description))
	}
	if e.URL != "https://discord.com/channels/g1/c1/m1" {
		t.Errorf("URL = %q", e.URL)
	}
}

func TestBuildPreview_EmptyContent(t *testing.T) {
	sticker := &chat.Message{ID: "m1", ChannelID: "c1", Stickers: []chat.Sticker{{ID: "s"}}}
	if got := buildPreview(sticker, "ja", 100).Description; got != "[スタンプ]" {
		t.Errorf("sticker description = %q", got)
	}
	att := &chat.Message{ID: "m1", ChannelID: "c1", Attachments: []chat.Attachment{{Filename: "a.png"}}}
	e := buildPreview(att, "fr", 100)
	if e.Description != "[Pièce jointe]" {
		t.Errorf("attachment description = %q", e.Description)
	}
	if e.URL != "" {
		t.Errorf("URL = %q, want empty without a guild", e.URL)
	}
}

func TestSameLanguage(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"en", "en", true},
		{"EN", "en", true},
		{"ja", "ja-JP", false},
		{"zh-CN", "zh-TW", false},
		{"pt-br", "pt-BR", true},
		{"en", "fr", false},
		{"Japanese", "Japanese", true},
	}
	for _, tt := range tests {
		if got := sameLanguage(tt.a, tt.b); got != tt.want {
			t.Errorf("sameLanguage(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
