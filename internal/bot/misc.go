package bot

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// repeatCap keeps .repeat from flooding a chat
const repeatCap = 10

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message, _ []string) {
	b.reply(msg, b.helpText())
}

func (b *Bot) handlePing(_ context.Context, msg *tgbotapi.Message, _ []string) {
	start := time.Now()
	sent := b.reply(msg, "**Pong!**")
	b.edit(sent, fmt.Sprintf("**Pong!** `%s`", time.Since(start).Round(time.Millisecond)))
}

func (b *Bot) handleRandom(_ context.Context, msg *tgbotapi.Message, args []string) {
	var options []string
	for _, opt := range strings.Split(args[0], ";") {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) == 0 {
		b.reply(msg, "**Usage:** `.random <a>;<b>[;...]`")
		return
	}
	b.reply(msg, fmt.Sprintf("**The wheel says:** %s", options[rand.Intn(len(options))]))
}

func (b *Bot) handleSleep(ctx context.Context, msg *tgbotapi.Message, args []string) {
	seconds, err := strconv.Atoi(args[0])
	if err != nil || seconds <= 0 {
		b.reply(msg, "**Usage:** `.sleep <seconds>`")
		return
	}
	select {
	case <-time.After(time.Duration(seconds) * time.Second):
		b.reply(msg, fmt.Sprintf("**Slept for %d second(s).**", seconds))
	case <-ctx.Done():
	}
}

func (b *Bot) handleRepeat(_ context.Context, msg *tgbotapi.Message, args []string) {
	count, err := strconv.Atoi(args[0])
	if err != nil || count <= 0 {
		b.reply(msg, "**Usage:** `.repeat <n> <text>`")
		return
	}
	if count > repeatCap {
		count = repeatCap
	}
	for i := 0; i < count; i++ {
		b.send(msg.Chat.ID, args[1])
	}
}

func (b *Bot) handleShutdown(_ context.Context, msg *tgbotapi.Message, _ []string) {
	b.reply(msg, "**Shutting down.**")
	b.tasks.CancelAll()
	close(b.stop)
}

// handleRestart re-execs the current binary in place
func (b *Bot) handleRestart(_ context.Context, msg *tgbotapi.Message, _ []string) {
	b.reply(msg, "**Restarting.**")
	b.tasks.CancelAll()
	b.api.StopReceivingUpdates()

	exe, err := os.Executable()
	if err != nil {
		b.reply(msg, fmt.Sprintf("**Restart failed:** `%v`", err))
		return
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		b.reply(msg, fmt.Sprintf("**Restart failed:** `%v`", err))
	}
}
