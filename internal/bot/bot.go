// Package bot wires the Telegram command surface to the Drive transfer
// orchestrator. Every handler is a thin adapter: parse the command text,
// call the services, format a human readable reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"drivebot/internal/aria2"
	"drivebot/internal/config"
	"drivebot/internal/credentials"
	"drivebot/internal/drive"
	"drivebot/internal/fetch"
	"drivebot/internal/state"
)

// handlerFunc runs one matched command. args are the pattern's capture
// groups.
type handlerFunc func(ctx context.Context, msg *tgbotapi.Message, args []string)

type command struct {
	name string
	re   *regexp.Regexp
	help string
	fn   handlerFunc
}

// Bot is the running Telegram bot
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     *config.Config
	creds   *credentials.Manager
	aria    *aria2.Client
	fetcher *fetch.Fetcher
	dest    *state.Destination
	tasks   *state.Tasks

	commands []command

	// stop is closed by the shutdown command
	stop chan struct{}

	// pending reply waits, keyed by chat id. Used by the auth flow and
	// the mirror confirmation.
	mu      sync.Mutex
	pending map[int64]chan string
}

// New creates a Bot from its collaborators
func New(cfg *config.Config, creds *credentials.Manager) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	b := &Bot{
		api:     api,
		cfg:     cfg,
		creds:   creds,
		aria:    aria2.NewClient(cfg.Aria2),
		fetcher: fetch.NewFetcher(cfg.Drive.FetchLimit()),
		dest:    state.NewDestination(),
		tasks:   state.NewTasks(),
		stop:    make(chan struct{}),
		pending: make(map[int64]chan string),
	}
	b.registerCommands()
	return b, nil
}

func (b *Bot) register(name, pattern, help string, fn handlerFunc) {
	b.commands = append(b.commands, command{
		name: name,
		re:   regexp.MustCompile(pattern),
		help: help,
		fn:   fn,
	})
}

// Run processes updates until ctx is cancelled
func (b *Bot) Run(ctx context.Context) error {
	log.Printf("Authorized as @%s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case <-b.stop:
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.dispatch(ctx, update.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	// A pending wait in this chat consumes the message before command
	// matching, so pasted auth codes are not parsed as commands.
	if b.feedPending(msg) {
		return
	}
	for _, cmd := range b.commands {
		if m := cmd.re.FindStringSubmatch(msg.Text); m != nil {
			// one cooperative task per command; commands from
			// different chats run concurrently
			go cmd.fn(ctx, msg, m[1:])
			return
		}
	}
}

// feedPending hands msg to a waiting handler, if any
func (b *Bot) feedPending(msg *tgbotapi.Message) bool {
	b.mu.Lock()
	ch, ok := b.pending[msg.Chat.ID]
	if ok {
		delete(b.pending, msg.Chat.ID)
	}
	b.mu.Unlock()
	if ok {
		ch <- strings.TrimSpace(msg.Text)
		return true
	}
	return false
}

// waitForReply blocks until the next message in chatID arrives or the
// timeout elapses. The wait is explicit and bounded, never open-ended.
// Only one wait per chat: a second caller would orphan the first, so it
// is refused instead.
func (b *Bot) waitForReply(ctx context.Context, chatID int64, timeout time.Duration) (string, error) {
	ch := make(chan string, 1)
	b.mu.Lock()
	if _, busy := b.pending[chatID]; busy {
		b.mu.Unlock()
		return "", errors.New("another command is already waiting for a reply in this chat")
	}
	b.pending[chatID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, chatID)
		b.mu.Unlock()
	}()

	select {
	case text := <-ch:
		return text, nil
	case <-time.After(timeout):
		return "", errors.New("timed out waiting for a reply")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ---- reply helpers ----

func (b *Bot) reply(msg *tgbotapi.Message, text string) *tgbotapi.Message {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.ReplyToMessageID = msg.MessageID
	m.DisableWebPagePreview = true
	sent, err := b.api.Send(m)
	if err != nil {
		log.Printf("Failed to send reply: %v", err)
		return nil
	}
	return &sent
}

func (b *Bot) send(chatID int64, text string) *tgbotapi.Message {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.DisableWebPagePreview = true
	sent, err := b.api.Send(m)
	if err != nil {
		log.Printf("Failed to send message: %v", err)
		return nil
	}
	return &sent
}

func (b *Bot) edit(msg *tgbotapi.Message, text string) {
	if msg == nil {
		return
	}
	e := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
	e.ParseMode = tgbotapi.ModeMarkdown
	e.DisableWebPagePreview = true
	if _, err := b.api.Send(e); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

// sendDocument uploads text as a file attachment, used when a reply
// would exceed the Telegram message length limit
func (b *Bot) sendDocument(chatID int64, name, content, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: []byte(content)})
	doc.Caption = caption
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Failed to send document: %v", err)
	}
}

// fail converts an error from the taxonomy into a user-facing reply.
// Nothing propagates past the handler boundary.
func (b *Bot) fail(status *tgbotapi.Message, msg *tgbotapi.Message, op string, err error) {
	var text string
	switch {
	case errors.Is(err, context.Canceled):
		text = fmt.Sprintf("**GDrive - %s**\n\n**Status:** Cancelled.", op)
	case errors.Is(err, credentials.ErrAuthRequired):
		text = "**Credentials not found, generate them with** `.gdauth`**.**"
	case errors.Is(err, drive.ErrInvalidIdentifier),
		errors.Is(err, drive.ErrInvalidSource),
		errors.Is(err, drive.ErrUnsupportedSourceKind):
		text = fmt.Sprintf("**Error:** %v", err)
	default:
		text = fmt.Sprintf("**GDrive - %s**\n\n**Status:** Failed.\n**Reason:** `%v`", op, err)
	}
	switch {
	case status != nil:
		b.edit(status, text)
	case msg != nil:
		b.reply(msg, text)
	default:
		log.Printf("%s failed: %v", op, err)
	}
}

// finishTask records the task outcome before the task is discarded, so
// the operator log shows how each transfer ended
func (b *Bot) finishTask(task *state.Task, err error) {
	switch {
	case err == nil:
		task.SetStatus(state.StatusComplete)
	case errors.Is(err, context.Canceled):
		task.SetStatus(state.StatusCancelled)
	default:
		task.SetStatus(state.StatusFailed)
	}
	log.Printf("Task %d (%s): %s after %s",
		task.ID, task.Source, task.Status(), time.Since(task.StartTime).Round(time.Second))
}

// userID keys the credential store by the invoking Telegram user
func userID(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return strconv.FormatInt(msg.Chat.ID, 10)
	}
	return strconv.FormatInt(msg.From.ID, 10)
}

// driveFor builds the Drive service stack for the invoking user. The
// session destination, when set, overrides the configured default parent.
func (b *Bot) driveFor(ctx context.Context, msg *tgbotapi.Message) (*drive.Navigator, *drive.Transferer, *drive.Syncer, error) {
	client, err := b.creds.Client(ctx, userID(msg))
	if err != nil {
		return nil, nil, nil, err
	}
	svc, err := drive.NewService(ctx, client)
	if err != nil {
		return nil, nil, nil, err
	}
	parent := b.dest.Resolve(b.cfg.Drive.DefaultFolder)
	nav := drive.NewNavigator(svc, parent)
	tr := drive.NewTransferer(svc)
	return nav, tr, drive.NewSyncer(nav, tr), nil
}

// helpText renders the command help registry
func (b *Bot) helpText() string {
	cmds := make([]command, len(b.commands))
	copy(cmds, b.commands)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })

	var sb strings.Builder
	sb.WriteString("**Available commands:**\n\n")
	for _, c := range cmds {
		if c.help == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s\n\n", c.help)
	}
	return sb.String()
}
