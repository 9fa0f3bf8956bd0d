package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Alias1177/FraudShield/internal/classifier"
	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/Alias1177/FraudShield/internal/export"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/storage"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/Alias1177/FraudShield/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(fileID string) (string, error) {
	return f.fileURL + "/" + fileID, nil
}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type fixture struct {
	bot *Bot
	api *fakeAPI
	mem *storage.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label":"Fraud","confidence":91.23,"fraud_prob":91.23,"not_fraud_prob":8.77}`))
	}))
	t.Cleanup(svc.Close)

	files := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("Please send your card number"))
	}))
	t.Cleanup(files.Close)

	f := &fixture{api: &fakeAPI{fileURL: files.URL}, mem: storage.NewMemory()}
	client := classifier.NewClient(&config.Config{APIURL: svc.URL, RequestsPerSec: 100})

	factory := func(ctx context.Context, chatID int64) (*session.Session, error) {
		scoped := storage.Scoped(f.mem, fmt.Sprintf("chat:%d", chatID))
		hist := history.NewStore(history.NewKVPersister(scoped))
		hist.Load(ctx)
		return session.New(client, hist, theme.NewPrefs(scoped)), nil
	}
	f.bot = NewBot(f.api, factory, time.UTC)
	return f
}

func textMessage(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestClassifyText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, textMessage(1, "URGENT: send your PIN now"))

	reply := f.api.last()
	assert.Contains(t, reply, "🚨")
	assert.Contains(t, reply, "Confidence: 91.23%")

	raw, ok, _ := f.mem.Get(ctx, "chat:1:"+history.HistoryKey)
	require.True(t, ok)
	assert.Contains(t, raw, "URGENT: send your PIN now")
}

func TestChatsHaveSeparateHistories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, textMessage(1, "hello"))
	f.bot.HandleUpdate(ctx, textMessage(2, "/history"))
	assert.Equal(t, "No predictions yet.", f.api.last())

	f.bot.HandleUpdate(ctx, textMessage(1, "/history"))
	assert.Contains(t, f.api.last(), "Prediction History (1)")
	assert.Contains(t, f.api.last(), "hello")
}

func TestValidationMessage(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleUpdate(context.Background(), textMessage(1, strings.Repeat("a", 5001)))
	assert.Contains(t, f.api.last(), "exceeds 5000 characters")
}

func TestExportAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, textMessage(1, "/export"))
	assert.Equal(t, "History is empty, nothing to export.", f.api.last())

	f.bot.HandleUpdate(ctx, textMessage(1, `Say "hi", then leave`))
	f.bot.HandleUpdate(ctx, textMessage(1, "/export"))

	f.api.mu.Lock()
	doc, ok := f.api.sent[len(f.api.sent)-1].(tgbotapi.DocumentConfig)
	f.api.mu.Unlock()
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, export.FileName, file.Name)
	assert.Contains(t, string(file.Bytes), `"Say ""hi"", then leave"`)

	f.bot.HandleUpdate(ctx, textMessage(1, "/clear"))
	assert.Equal(t, "History cleared.", f.api.last())
	_, exists, _ := f.mem.Get(ctx, "chat:1:"+history.HistoryKey)
	assert.False(t, exists)
}

func TestThemeCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.bot.HandleUpdate(ctx, textMessage(7, "/theme dark"))
	assert.Equal(t, "Theme set to dark.", f.api.last())
	raw, _, _ := f.mem.Get(ctx, "chat:7:"+theme.ThemeKey)
	assert.Equal(t, "dark", raw)

	f.bot.HandleUpdate(ctx, textMessage(7, "/theme"))
	assert.Equal(t, "Theme set to light.", f.api.last())

	f.bot.HandleUpdate(ctx, textMessage(7, "/theme purple"))
	assert.Contains(t, f.api.last(), "unknown theme")
}

func TestDocumentUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	upload := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 3},
		Document: &tgbotapi.Document{FileID: "abc", FileName: "chat.txt"},
	}}
	f.bot.HandleUpdate(ctx, upload)
	assert.Contains(t, f.api.last(), "Prediction Result")

	binary := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 3},
		Document: &tgbotapi.Document{FileID: "img", FileName: "photo.png", MimeType: "image/png"},
	}}
	f.bot.HandleUpdate(ctx, binary)
	assert.Contains(t, f.api.last(), "plain-text")

	missing := tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: 3},
		Document: &tgbotapi.Document{FileID: "missing", FileName: "gone.txt"},
	}}
	f.bot.HandleUpdate(ctx, missing)
	assert.Contains(t, f.api.last(), "Could not download")
}

func TestFeedbackCallback(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    callbackCorrect,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
	}})

	assert.Equal(t, session.FeedbackMessage(true), f.api.last())
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	require.NotEmpty(t, f.api.requests)
	_, ok := f.api.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, ok)
}

func TestFormatHistoryTruncates(t *testing.T) {
	var records []models.HistoryRecord
	for i := 0; i < 7; i++ {
		records = append(records, models.HistoryRecord{
			Conversation: strings.Repeat("x", 100),
			Result:       models.PredictionResult{Label: models.LabelNotFraud, Confidence: 60},
			CreatedAt:    time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}

	out := formatHistory(records, 5, time.UTC)
	assert.Contains(t, out, "Prediction History (7)")
	assert.Contains(t, out, "and 2 more")
	assert.Contains(t, out, "Not Fraud (60.00%)")
	assert.Contains(t, out, strings.Repeat("x", 80)+"…")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)
	f.bot.HandleUpdate(context.Background(), textMessage(1, "/launch"))
	assert.Contains(t, f.api.last(), "Unknown command")

	f.bot.HandleUpdate(context.Background(), textMessage(1, "/help"))
	assert.Contains(t, f.api.last(), "/export")
}

func TestNewChatDoesNotWaitForAnotherChatsSession(t *testing.T) {
	release := make(chan struct{})
	opened := make(chan struct{})
	mem := storage.NewMemory()

	factory := func(ctx context.Context, chatID int64) (*session.Session, error) {
		if chatID == 1 {
			close(opened)
			<-release
		}
		scoped := storage.Scoped(mem, fmt.Sprintf("chat:%d", chatID))
		return session.New(&classifier.Client{}, history.NewStore(history.NewKVPersister(scoped)), theme.NewPrefs(scoped)), nil
	}
	bot := NewBot(&fakeAPI{}, factory, time.UTC)
	ctx := context.Background()

	first := make(chan *session.Session)
	go func() {
		s, _ := bot.session(ctx, 1)
		first <- s
	}()
	<-opened

	second, err := bot.session(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, second)

	close(release)
	s1 := <-first
	again, err := bot.session(ctx, 1)
	require.NoError(t, err)
	assert.Same(t, s1, again)
}
