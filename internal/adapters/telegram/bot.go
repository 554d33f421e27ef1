package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reelcrop/internal/core/domain"
	"reelcrop/internal/core/ports"
)

// Bot replies to chat messages. It never processes media itself: a URL
// message is handed to the submitter and acknowledged right away.
type Bot struct {
	api       *tgbotapi.BotAPI
	submitter ports.Submitter
	logger    *slog.Logger
}

const (
	replyWelcome    = "👋 Welcome to ReelCrop!\nSend a video URL to process."
	replyInvalidURL = "Invalid URL"
	replyAccepted   = "🔥 Processing your video..."
	replyBusy       = "⏳ Too many videos in progress, please try again shortly."
	replyStopping   = "The service is shutting down, please try again later."
)

// NewBot connects to the Bot API with token. An empty apiBaseURL uses the
// public endpoint.
func NewBot(token, apiBaseURL string, submitter ports.Submitter, logger *slog.Logger) (*Bot, error) {
	if strings.TrimSpace(apiBaseURL) == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	endpoint := strings.TrimRight(apiBaseURL, "/") + "/bot%s/%s"
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect bot: %w", redact(err, token))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bot{
		api:       api,
		submitter: submitter,
		logger:    logger.With("component", "bot", "username", api.Self.UserName),
	}, nil
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			text := b.reply(update.Message)
			if text == "" {
				continue
			}
			reply := tgbotapi.NewMessage(update.Message.Chat.ID, text)
			reply.ReplyToMessageID = update.Message.MessageID
			if _, err := b.api.Send(reply); err != nil {
				b.logger.Warn("bot reply failed", slog.String("error", redact(err, b.api.Token).Error()))
			}
		}
	}
}

// reply returns the answer to msg. Commands other than /start get none.
func (b *Bot) reply(msg *tgbotapi.Message) string {
	if msg.IsCommand() {
		if msg.Command() == "start" {
			return replyWelcome
		}
		return ""
	}

	url := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(url, "http") {
		return replyInvalidURL
	}

	jobID, err := b.submitter.Submit(url, domain.OriginMessage)
	switch {
	case err == nil:
		b.logger.Info("job submitted", slog.String("job_id", jobID), slog.Int64("chat_id", msg.Chat.ID))
		return replyAccepted
	case errors.Is(err, domain.ErrQueueFull):
		return replyBusy
	case errors.Is(err, domain.ErrExecutorClosed):
		return replyStopping
	default:
		return replyInvalidURL
	}
}
