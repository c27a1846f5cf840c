package bot

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"telegram-anon-bot/cmd/bot/config"
	"telegram-anon-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

const (
	testChannelID = int64(-1001234567890)
	testAdminA    = int64(900)
	testAdminB    = int64(901)
	testUserID    = int64(111)
	testFooter    = "<footer>"
)

// sentLog потокобезопасно копит все вызовы транспорта для проверок.
type sentLog struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (l *sentLog) addSent(c tgbotapi.Chattable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, c)
}

func (l *sentLog) addRequest(c tgbotapi.Chattable) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, c)
}

// messagesTo возвращает тексты сообщений, отправленных в указанный чат.
func (l *sentLog) messagesTo(chatID int64) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

// callbackAnswers возвращает тексты ответов на callback-запросы.
func (l *sentLog) callbackAnswers() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb.Text)
		}
	}
	return out
}

// newTestBot создает бота с файловыми хранилищами во временной папке и
// транспортом-заглушкой, пишущим в sentLog.
func newTestBot(t *testing.T) (*Bot, *sentLog) {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	identities, err := storage.OpenIdentityRegistry(filepath.Join(dir, "user_id_map.txt"))
	require.NoError(t, err)

	cfg := config.BotConfig{
		Token:            "test-token",
		ChannelID:        testChannelID,
		AdminIDs:         []int64{testAdminA, testAdminB},
		FooterText:       testFooter,
		AlbumDebounceMS:  40,
		PendingCap:       500,
		BroadcastDelayMS: 1,
	}

	b := &Bot{
		cfg:           cfg,
		identities:    identities,
		postCounter:   storage.NewSequenceCounter(filepath.Join(dir, "post_number.txt")),
		replyCounter:  storage.NewSequenceCounter(filepath.Join(dir, "reply_number.txt")),
		accepting:     storage.NewAcceptingFlag(filepath.Join(dir, "admin_mode.txt"), logger),
		pending:       NewPendingStore(),
		published:     NewPublishedStore(),
		logger:        logger,
		albums:        make(map[string]*albumAggregate),
		albumDebounce: 40 * time.Millisecond,
	}

	log := &sentLog{}
	nextID := 0
	b.send = func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		log.addSent(c)
		nextID++
		return tgbotapi.Message{MessageID: nextID}, nil
	}
	b.request = func(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
		log.addRequest(c)
		return &tgbotapi.APIResponse{Ok: true}, nil
	}
	b.sendMediaGroup = func(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
		log.addSent(cfg)
		msgs := make([]tgbotapi.Message, len(cfg.Media))
		for i := range msgs {
			nextID++
			msgs[i] = tgbotapi.Message{MessageID: nextID}
		}
		return msgs, nil
	}
	b.copyMessage = func(cfg tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error) {
		log.addRequest(cfg)
		nextID++
		return tgbotapi.MessageID{MessageID: nextID}, nil
	}
	return b, log
}

// newUserMessage строит входящее текстовое сообщение от пользователя.
func newUserMessage(from int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: from, FirstName: "Тест"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Date:      int(time.Now().Unix()),
	}
}

// newCallback строит нажатие инлайн-кнопки от администратора.
func newCallback(from int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{
			MessageID: 55,
			Chat:      &tgbotapi.Chat{ID: from},
			Text:      "карточка модерации",
		},
		Data: data,
	}
}

// pendingToken возвращает токен единственной заявки в очереди.
func pendingToken(t *testing.T, b *Bot) string {
	t.Helper()
	b.pending.mu.RLock()
	defer b.pending.mu.RUnlock()
	require.Len(t, b.pending.subs, 1)
	for token := range b.pending.subs {
		return token
	}
	return ""
}
