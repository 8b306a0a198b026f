// Package telegram runs the chat dashboard as a Telegram bot: one chat
// session per Telegram chat, long polling, commands for mode and document
// selection, plain text routed through the dispatcher.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/service"
)

// botCreatorID owns bot-driven conversations. The deployment is
// single-tenant; per-chat isolation comes from the session token.
const botCreatorID int32 = 1

const helpText = `I answer questions, optionally grounded on your documents.

/docs — list available documents
/use <n> ... — chat grounded on up to 3 listed documents
/general — back to free-form chat
/new — start a fresh conversation
/help — this message

Anything else you type is a chat message.`

// Bot is the long-polling Telegram front end.
type Bot struct {
	api        *tgbotapi.BotAPI
	registry   *chat.Registry
	dispatcher *chat.Dispatcher
	catalog    *service.Catalog
	logger     *slog.Logger

	mu       sync.Mutex
	limiters map[int64]*rate.Limiter
	// listings remembers the numbered /docs output per chat so /use <n>
	// can refer to it.
	listings map[int64][]chat.DocumentRef
}

func NewBot(token string, registry *chat.Registry, dispatcher *chat.Dispatcher, catalog *service.Catalog, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Telegram bot")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:        api,
		registry:   registry,
		dispatcher: dispatcher,
		catalog:    catalog,
		logger:     logger,
		limiters:   make(map[int64]*rate.Limiter),
		listings:   make(map[int64][]chat.DocumentRef),
	}, nil
}

// Start polls for updates until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.limiter(chatID).Allow() {
		b.reply(chatID, "Too many messages, give me a second.")
		return
	}

	sess := b.registry.GetOrCreate(sessionToken(chatID), botCreatorID)
	sess.Touch()

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, sess, msg)
		return
	}
	b.handleChat(ctx, chatID, sess, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, sess *chat.Session, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)

	case "new":
		sess.StartNewConversation()
		b.reply(chatID, "Started a fresh conversation.")

	case "general":
		sess.SetMode(chat.ModeGeneral)
		b.reply(chatID, "Back to general chat.")

	case "docs":
		b.handleDocs(ctx, chatID)

	case "use":
		b.handleUse(chatID, sess, msg.CommandArguments())

	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

// handleDocs lists the selectable documents, numbered for /use.
func (b *Bot) handleDocs(ctx context.Context, chatID int64) {
	refs, err := b.catalog.SelectableRefs(ctx, botCreatorID)
	if err != nil {
		b.logger.Warn("failed to list documents", "error", err)
		b.reply(chatID, "Could not load the document list, try again later.")
		return
	}
	if len(refs) == 0 {
		b.reply(chatID, "No documents are ready yet. Upload some through the dashboard first.")
		return
	}

	b.mu.Lock()
	b.listings[chatID] = refs
	b.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Available documents:\n")
	for i, ref := range refs {
		fmt.Fprintf(&sb, "%d. %s (%d words)\n", i+1, ref.Title, ref.WordCount)
	}
	sb.WriteString("\nSelect with /use <n> — up to 3, e.g. /use 1 3")
	b.reply(chatID, sb.String())
}

// handleUse selects the numbered documents from the last /docs listing and
// switches the session to grounded chat.
func (b *Bot) handleUse(chatID int64, sess *chat.Session, args string) {
	b.mu.Lock()
	listing := b.listings[chatID]
	b.mu.Unlock()
	if len(listing) == 0 {
		b.reply(chatID, "Run /docs first to see the document numbers.")
		return
	}

	indexes, err := parseUseArgs(args, len(listing))
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	refs := make([]chat.DocumentRef, 0, len(indexes))
	for _, idx := range indexes {
		refs = append(refs, listing[idx])
	}
	if !sess.SetSelectedDocuments(refs) {
		b.reply(chatID, fmt.Sprintf("Pick between 1 and %d distinct documents.", chat.MaxSelectedDocuments))
		return
	}

	titles := make([]string, 0, len(refs))
	for _, ref := range refs {
		titles = append(titles, ref.Title)
	}
	b.reply(chatID, "Grounded chat on: "+strings.Join(titles, ", "))
}

func (b *Bot) handleChat(ctx context.Context, chatID int64, sess *chat.Session, text string) {
	b.sendTyping(chatID)

	exchange, err := b.dispatcher.Send(ctx, sess, text)
	if err != nil {
		if errors.Is(err, chat.ErrStaleResponse) {
			return
		}
		b.logger.Warn("completion failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong generating a response, try again.")
		return
	}

	b.reply(chatID, exchange.AssistantMessage.Content+sourcesFooter(exchange.AssistantMessage.Sources))
}

// parseUseArgs parses "/use 1 3" style arguments into zero-based listing
// indexes, deduplicated in order.
func parseUseArgs(args string, listingLen int) ([]int, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return nil, errors.New("Tell me which documents, e.g. /use 1 3")
	}
	if len(fields) > chat.MaxSelectedDocuments {
		return nil, errors.Errorf("At most %d documents can be selected.", chat.MaxSelectedDocuments)
	}

	seen := make(map[int]bool, len(fields))
	indexes := make([]int, 0, len(fields))
	for _, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > listingLen {
			return nil, errors.Errorf("%q is not a listed document number.", field)
		}
		if seen[n-1] {
			continue
		}
		seen[n-1] = true
		indexes = append(indexes, n-1)
	}
	return indexes, nil
}

func sourcesFooter(sources []chat.Source) string {
	if len(sources) == 0 {
		return ""
	}
	seen := make(map[string]bool, len(sources))
	var sb strings.Builder
	sb.WriteString("\n\nSources:")
	for _, src := range sources {
		if seen[src.DocumentID] {
			continue
		}
		seen[src.DocumentID] = true
		fmt.Fprintf(&sb, "\n• %s", src.Title)
	}
	return sb.String()
}

func sessionToken(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// limiter returns the per-chat rate limiter, creating it on first use.
func (b *Bot) limiter(chatID int64) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 3)
		b.limiters[chatID] = l
	}
	return l
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send telegram message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendTyping(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug("failed to send typing action", "chat_id", chatID, "error", err)
	}
}
