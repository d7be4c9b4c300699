// Package relay mirrors chat messages between linked channels, translating
// each copy into its channel's language and propagating later edits to every
// copy.
package relay

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/zulandar/polyglot/internal/cache"
	"github.com/zulandar/polyglot/internal/chat"
	"github.com/zulandar/polyglot/internal/store"
	"github.com/zulandar/polyglot/internal/tagcodec"
	"github.com/zulandar/polyglot/internal/telemetry"
	"github.com/zulandar/polyglot/internal/translate"
	"github.com/zulandar/polyglot/internal/webhook"
)

// Relay orchestrates the create and edit fan-outs. It holds no per-message
// state; all process-wide state lives in the caches it is given.
type Relay struct {
	links      store.Links
	config     *cache.Config
	webhooks   *webhook.Cache
	fetcher    chat.Fetcher
	translator translate.Translator
	previewLen int
}

// Opts holds the collaborators of a Relay.
type Opts struct {
	Links         store.Links
	Config        *cache.Config
	Webhooks      *webhook.Cache
	Fetcher       chat.Fetcher
	Translator    translate.Translator
	PreviewLength int // defaults to DefaultPreviewLength
}

// New creates a Relay with the given options.
func New(opts Opts) (*Relay, error) {
	if opts.Links == nil {
		return nil, fmt.Errorf("relay: link store is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("relay: config cache is required")
	}
	if opts.Webhooks == nil {
		return nil, fmt.Errorf("relay: webhook cache is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("relay: fetcher is required")
	}
	if opts.Translator == nil {
		return nil, fmt.Errorf("relay: translator is required")
	}
	previewLen := opts.PreviewLength
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	return &Relay{
		links:      opts.Links,
		config:     opts.Config,
		webhooks:   opts.Webhooks,
		fetcher:    opts.Fetcher,
		translator: opts.Translator,
		previewLen: previewLen,
	}, nil
}

// reply is what a message's reply reference resolved to.
type reply struct {
	record *store.LinkRecord // link record containing the replied-to message
	author *chat.Author      // human author to mention; nil for bots and webhooks
}

// HandleCreate relays a newly posted message into every linked channel and
// records the copies. Only a failure to persist the link record is returned;
// every other problem is logged and contained to its branch.
func (r *Relay) HandleCreate(ctx context.Context, msg chat.Message) error {
	if r.isOwnOutput(ctx, msg) {
		return nil
	}
	if strings.TrimSpace(msg.Content) == "" && len(msg.Attachments) == 0 && len(msg.Stickers) == 0 {
		return nil
	}

	sourceLang, ok := r.language(ctx, msg.ChannelID)
	if !ok {
		return nil
	}
	targets, ok := r.topology(ctx, msg.ChannelID)
	if !ok {
		return nil
	}

	rep := r.resolveReply(ctx, msg)

	results := make([]*store.Copy, len(targets))
	branches := 0
	var wg sync.WaitGroup
	for i, target := range targets {
		if target == msg.ChannelID {
			continue
		}
		branches++
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			results[i] = r.relayTo(ctx, msg, rep, sourceLang, target)
		}(i, target)
	}
	wg.Wait()

	copies := make([]store.Copy, 0, len(results))
	for _, c := range results {
		if c != nil {
			copies = append(copies, *c)
		}
	}
	if len(copies) == 0 {
		if branches > 0 {
			log.Printf("relay: message %s reached none of %d linked channels", msg.ID, branches)
		}
		return nil
	}
	if len(copies) < branches {
		log.Printf("relay: message %s reached %d of %d linked channels", msg.ID, len(copies), branches)
	}

	rec := store.LinkRecord{
		AuthorID:        msg.Author.ID,
		OriginChannelID: msg.ChannelID,
		OriginMessageID: msg.ID,
		Copies:          copies,
	}
	if err := r.links.Create(ctx, rec); err != nil {
		return fmt.Errorf("relay: persist link for %s: %w", msg.ID, err)
	}
	telemetry.RecordsPersisted.Inc()
	return nil
}

// relayTo runs one fan-out branch and returns the posted copy, or nil when
// the branch was skipped or failed.
func (r *Relay) relayTo(ctx context.Context, msg chat.Message, rep reply, sourceLang, target string) *store.Copy {
	targetLang, ok := r.language(ctx, target)
	if !ok {
		telemetry.RelayCopies.WithLabelValues(telemetry.ResultSkipped).Inc()
		return nil
	}

	payload, err := r.compose(ctx, msg, rep, sourceLang, target, targetLang)
	if err != nil {
		log.Printf("relay: %s -> %s: %v", msg.ChannelID, target, err)
		telemetry.RelayCopies.WithLabelValues(telemetry.ResultFailed).Inc()
		return nil
	}

	h, err := r.webhooks.Get(ctx, target)
	if err != nil {
		log.Printf("relay: %s -> %s: %v", msg.ChannelID, target, err)
		telemetry.RelayCopies.WithLabelValues(telemetry.ResultFailed).Inc()
		return nil
	}
	sent, err := h.Send(ctx, payload)
	if err != nil {
		log.Printf("relay: %s -> %s: %v", msg.ChannelID, target, err)
		telemetry.RelayCopies.WithLabelValues(telemetry.ResultFailed).Inc()
		return nil
	}

	telemetry.RelayCopies.WithLabelValues(telemetry.ResultOK).Inc()
	return &store.Copy{ChannelID: sent.ChannelID, MessageID: sent.MessageID}
}

// compose builds the webhook payload for one target channel.
func (r *Relay) compose(ctx context.Context, msg chat.Message, rep reply, sourceLang, target, targetLang string) (chat.Payload, error) {
	p := chat.Payload{
		Username:    msg.Author.Name(),
		AvatarURL:   msg.Author.AvatarURL,
		Attachments: msg.Attachments,
	}

	if len(msg.Stickers) > 0 {
		urls := make([]string, 0, len(msg.Stickers))
		for _, s := range msg.Stickers {
			urls = append(urls, s.URL)
		}
		p.Content = strings.Join(urls, "\n")
		return p, nil
	}

	if embed, ok := r.replyPreview(ctx, rep, target, targetLang); ok {
		p.Embeds = append(p.Embeds, embed)
	}

	text, err := r.translateText(ctx, msg.Content, sourceLang, targetLang)
	if err != nil {
		return chat.Payload{}, err
	}
	p.Content = withMention(text, rep.author)
	return p, nil
}

// translateText runs one protected translation: encode, translate, decode.
func (r *Relay) translateText(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" || sameLanguage(sourceLang, targetLang) {
		return text, nil
	}
	encoded, table := tagcodec.Encode(text)
	translated, err := r.translator.Translate(ctx, encoded, sourceLang, targetLang)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", sourceLang, targetLang, err)
	}
	return tagcodec.Decode(translated, table), nil
}

// resolveReply looks up what msg replies to. Missing references resolve to
// an empty reply and never block the relay.
func (r *Relay) resolveReply(ctx context.Context, msg chat.Message) reply {
	ref := msg.Reference
	if ref == nil || ref.MessageID == "" {
		return reply{}
	}
	channelID := ref.ChannelID
	if channelID == "" {
		channelID = msg.ChannelID
	}

	var rep reply
	rec, err := r.links.FindByCopyOrOrigin(ctx, ref.MessageID, channelID)
	if err != nil {
		log.Printf("relay: resolve reply target %s: %v", ref.MessageID, err)
	}
	rep.record = rec

	target, err := r.fetcher.FetchMessage(ctx, channelID, ref.MessageID)
	if err != nil {
		log.Printf("relay: fetch reply target %s: %v", ref.MessageID, err)
		return rep
	}
	if !target.Author.Bot && target.WebhookID == "" {
		author := target.Author
		rep.author = &author
	}
	return rep
}

// replyPreview renders the copy of the replied-to message that lives in
// target. It reports false when there is nothing to show.
func (r *Relay) replyPreview(ctx context.Context, rep reply, target, targetLang string) (chat.Embed, bool) {
	if rep.record == nil {
		return chat.Embed{}, false
	}
	c, ok := rep.record.CopyIn(target)
	if !ok {
		return chat.Embed{}, false
	}
	ref, err := r.fetcher.FetchMessage(ctx, c.ChannelID, c.MessageID)
	if err != nil {
		log.Printf("relay: fetch reply preview %s/%s: %v", c.ChannelID, c.MessageID, err)
		return chat.Embed{}, false
	}
	return buildPreview(ref, targetLang, r.previewLen), true
}

// withMention appends a mention of author unless the text already has one.
func withMention(text string, author *chat.Author) string {
	if author == nil || author.ID == "" {
		return text
	}
	mention := "<@" + author.ID + ">"
	if tagcodec.Contains(text, mention) || tagcodec.Contains(text, "<@!"+author.ID+">") {
		return text
	}
	if text == "" {
		return mention
	}
	return text + " " + mention
}

// HandleEdit re-translates an edited origin message into every existing
// copy. The link record itself never changes.
func (r *Relay) HandleEdit(ctx context.Context, msg chat.Message) error {
	if msg.Author.Bot || msg.WebhookID != "" || strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	rec, err := r.links.FindByOriginID(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("relay: find link for edited %s: %w", msg.ID, err)
	}
	if rec == nil {
		return nil
	}

	sourceLang, ok := r.language(ctx, rec.OriginChannelID)
	if !ok {
		return nil
	}

	rep := r.resolveReply(ctx, msg)

	var wg sync.WaitGroup
	for _, c := range rec.Copies {
		wg.Add(1)
		go func(c store.Copy) {
			defer wg.Done()
			r.editCopy(ctx, msg, rep, sourceLang, c)
		}(c)
	}
	wg.Wait()
	return nil
}

// editCopy updates one copy; failures are logged and go no further.
func (r *Relay) editCopy(ctx context.Context, msg chat.Message, rep reply, sourceLang string, c store.Copy) {
	targetLang, ok := r.language(ctx, c.ChannelID)
	if !ok {
		telemetry.RelayEdits.WithLabelValues(telemetry.ResultSkipped).Inc()
		return
	}

	text, err := r.translateText(ctx, msg.Content, sourceLang, targetLang)
	if err != nil {
		log.Printf("relay: edit %s in %s: %v", c.MessageID, c.ChannelID, err)
		telemetry.RelayEdits.WithLabelValues(telemetry.ResultFailed).Inc()
		return
	}

	h, err := r.webhooks.Get(ctx, c.ChannelID)
	if err != nil {
		log.Printf("relay: edit %s in %s: %v", c.MessageID, c.ChannelID, err)
		telemetry.RelayEdits.WithLabelValues(telemetry.ResultFailed).Inc()
		return
	}
	if err := h.Edit(ctx, c.MessageID, chat.Payload{Content: withMention(text, rep.author), Attachments: msg.Attachments}); err != nil {
		log.Printf("relay: edit %s in %s: %v", c.MessageID, c.ChannelID, err)
		telemetry.RelayEdits.WithLabelValues(telemetry.ResultFailed).Inc()
		return
	}
	telemetry.RelayEdits.WithLabelValues(telemetry.ResultOK).Inc()
}

// isOwnOutput reports whether msg was posted by this process, either as the
// bot user or through one of its webhooks.
func (r *Relay) isOwnOutput(ctx context.Context, msg chat.Message) bool {
	if msg.Author.ID != "" && msg.Author.ID == r.webhooks.SelfID() {
		return true
	}
	if msg.WebhookID == "" {
		return false
	}
	owned, err := r.webhooks.Owns(ctx, msg.WebhookID)
	if err != nil {
		// An unverifiable webhook is treated as ours rather than risk a loop.
		log.Printf("relay: check webhook %s: %v", msg.WebhookID, err)
		return true
	}
	return owned
}

func (r *Relay) language(ctx context.Context, channelID string) (string, bool) {
	lang, ok, err := r.config.Languages.Get(ctx, channelID)
	if err != nil {
		log.Printf("relay: language of %s: %v", channelID, err)
		return "", false
	}
	return lang, ok
}

func (r *Relay) topology(ctx context.Context, channelID string) ([]string, bool) {
	targets, ok, err := r.config.Topology.Get(ctx, channelID)
	if err != nil {
		log.Printf("relay: topology of %s: %v", channelID, err)
		return nil, false
	}
	return targets, ok && len(targets) > 0
}
