package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Alias1177/FraudShield/internal/classifier"
	"github.com/Alias1177/FraudShield/internal/export"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	callbackCorrect   = "feedback_correct"
	callbackIncorrect = "feedback_incorrect"

	historyPreview = 5
)

// API is the part of *tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// SessionFactory opens the session of one chat
type SessionFactory func(ctx context.Context, chatID int64) (*session.Session, error)

// Bot answers Telegram updates with fraud checks. Each chat has its own history.
type Bot struct {
	api        API
	newSession SessionFactory
	httpClient *http.Client
	location   *time.Location
	logger     zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session.Session
}

func NewBot(api API, factory SessionFactory, loc *time.Location) *Bot {
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:        api,
		newSession: factory,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		location:   loc,
		logger:     log.With().Str("component", "telegram").Logger(),
		sessions:   make(map[int64]*session.Session),
	}
}

// Run handles updates until the channel closes or ctx is done
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// one goroutine per update, a slow prediction must not block other chats
			go b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

// session returns the chat's session, opening it outside the lock on first use
func (b *Bot) session(ctx context.Context, chatID int64) (*session.Session, error) {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		return s, nil
	}

	s, err := b.newSession(ctx, chatID)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.sessions[chatID]; ok {
		return existing, nil
	}
	b.sessions[chatID] = s
	return s, nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	logger := b.logger.With().Int64("chat_id", chatID).Logger()

	sess, err := b.session(ctx, chatID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open session")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, sess, message)
		return
	}

	if message.Document != nil {
		text, err := b.readDocument(sess, message.Document)
		if err != nil {
			logger.Warn().Err(err).Str("file", message.Document.FileName).Msg("Rejected upload")
			b.reply(chatID, err.Error())
			return
		}
		b.classify(ctx, sess, chatID, text)
		return
	}

	if message.Text == "" {
		b.reply(chatID, "Send me a conversation as text or as a .txt file.")
		return
	}
	b.classify(ctx, sess, chatID, message.Text)
}

func (b *Bot) handleCommand(ctx context.Context, sess *session.Session, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start", "help":
		b.reply(chatID, helpText(sess.MaxLength()))

	case "sample":
		b.reply(chatID, "Sample conversation:\n\n"+session.SampleConversation)
		b.classify(ctx, sess, chatID, session.SampleConversation)

	case "history":
		b.reply(chatID, formatHistory(sess.History(), historyPreview, b.location))

	case "export":
		records := sess.History()
		if len(records) == 0 {
			b.reply(chatID, "History is empty, nothing to export.")
			return
		}
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: export.FileName, Bytes: export.ToCSV(records)})
		doc.Caption = fmt.Sprintf("%d predictions", len(records))
		if _, err := b.api.Send(doc); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send export")
		}

	case "clear":
		if err := sess.ClearHistory(ctx); err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, "History cleared.")

	case "theme":
		b.handleTheme(ctx, sess, chatID, message.CommandArguments())

	default:
		b.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

func (b *Bot) handleTheme(ctx context.Context, sess *session.Session, chatID int64, arg string) {
	var (
		t   theme.Theme
		err error
	)
	if strings.TrimSpace(arg) == "" {
		t, err = sess.ToggleTheme(ctx)
	} else if t, err = theme.Parse(arg); err == nil {
		err = sess.SetTheme(ctx, t)
	}
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("Theme set to %s.", t))
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	// Acknowledge the callback query
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to acknowledge callback")
	}
	if callback.Message == nil {
		return
	}

	switch callback.Data {
	case callbackCorrect:
		b.reply(callback.Message.Chat.ID, session.FeedbackMessage(true))
	case callbackIncorrect:
		b.reply(callback.Message.Chat.ID, session.FeedbackMessage(false))
	}
}

func (b *Bot) classify(ctx context.Context, sess *session.Session, chatID int64, text string) {
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(typing); err != nil {
		b.logger.Debug().Err(err).Msg("Failed to send typing action")
	}

	rec, err := sess.Submit(ctx, text)
	var writeErr *history.PersistenceWriteError
	switch {
	case errors.Is(err, session.ErrBusy):
		b.reply(chatID, "Still analyzing your previous conversation, please wait.")
		return
	case errors.Is(err, session.ErrDiscarded):
		return
	case errors.As(err, &writeErr):
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Prediction not persisted")
	case err != nil:
		var cErr *classifier.ConnectivityFailure
		if errors.As(err, &cErr) {
			b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Classification service unreachable")
		}
		b.reply(chatID, err.Error())
		return
	}

	msg := tgbotapi.NewMessage(chatID, formatResult(rec.Result))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Correct", callbackCorrect),
			tgbotapi.NewInlineKeyboardButtonData("❌ Incorrect", callbackIncorrect),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send result")
	}
}

// readDocument downloads a plain-text upload
func (b *Bot) readDocument(sess *session.Session, doc *tgbotapi.Document) (string, error) {
	if !isPlainText(doc) {
		return "", &session.ValidationError{Message: "Please upload a plain-text (.txt) file."}
	}

	downloadFailed := &session.ValidationError{Message: "Could not download the file, please try again."}

	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		b.logger.Error().Err(err).Str("file_id", doc.FileID).Msg("Failed to resolve file URL")
		return "", downloadFailed
	}
	resp, err := b.httpClient.Get(url)
	if err != nil {
		b.logger.Error().Err(err).Str("file_id", doc.FileID).Msg("Failed to download file")
		return "", downloadFailed
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b.logger.Error().Int("status", resp.StatusCode).Str("file_id", doc.FileID).Msg("Failed to download file")
		return "", downloadFailed
	}

	return sess.ReadUpload(resp.Body)
}

func isPlainText(doc *tgbotapi.Document) bool {
	if strings.EqualFold(path.Ext(doc.FileName), ".txt") {
		return true
	}
	return strings.HasPrefix(doc.MimeType, "text/plain")
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}

func helpText(maxLength int) string {
	return "🛡 FraudShield checks conversations for fraud.\n\n" +
		fmt.Sprintf("Send a conversation (up to %d characters) as a message or a .txt file.\n\n", maxLength) +
		"/sample - check a sample conversation\n" +
		"/history - show recent predictions\n" +
		"/export - download history as CSV\n" +
		"/clear - clear history\n" +
		"/theme [dark|light] - set the theme preference"
}

func formatResult(r models.PredictionResult) string {
	icon := "✅"
	if r.Label.IsFraud() {
		icon = "🚨"
	}
	return fmt.Sprintf("%s Prediction Result\n\n%s", icon, session.FormatResult(r))
}

func formatHistory(records []models.HistoryRecord, limit int, loc *time.Location) string {
	if len(records) == 0 {
		return "No predictions yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Prediction History (%d)\n", len(records)))
	for i, rec := range records {
		if i == limit {
			sb.WriteString(fmt.Sprintf("\n…and %d more, use /export for all of them.", len(records)-limit))
			break
		}
		sb.WriteString(fmt.Sprintf("\n%s - %s (%s)\n%s\n",
			rec.DisplayTime(loc), rec.Result.Label, models.Percent(rec.Result.Confidence), truncate(rec.Conversation, 80)))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
