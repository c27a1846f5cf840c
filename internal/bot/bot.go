// Package bot реализует Telegram-бота анонимных заявок: приём сообщений от
// пользователей, очередь модерации с инлайн-кнопками и публикацию одобренных
// постов в канал.
package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"telegram-anon-bot/cmd/bot/config"
	applog "telegram-anon-bot/internal/log"
	"telegram-anon-bot/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	identities   *storage.IdentityRegistry
	postCounter  *storage.SequenceCounter
	replyCounter *storage.SequenceCounter
	accepting    *storage.AcceptingFlag
	pending      *PendingStore
	published    *PublishedStore
	logger       *slog.Logger

	// Агрегатор альбомов: сообщения одной медиа-группы приходят поштучно,
	// собираем их по media_group_id с дебаунс-таймером.
	albumsMu      sync.Mutex
	albums        map[string]*albumAggregate
	albumDebounce time.Duration

	// Точки вызова Telegram API вынесены в поля-функции, чтобы в тестах
	// подменять транспорт без реального соединения.
	send           func(tgbotapi.Chattable) (tgbotapi.Message, error)
	request        func(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	sendMediaGroup func(tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	copyMessage    func(tgbotapi.CopyMessageConfig) (tgbotapi.MessageID, error)
}

// Deps — зависимости бота, создаваемые в main.
type Deps struct {
	Identities   *storage.IdentityRegistry
	PostCounter  *storage.SequenceCounter
	ReplyCounter *storage.SequenceCounter
	Accepting    *storage.AcceptingFlag
	Pending      *PendingStore
	Published    *PublishedStore
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, deps Deps, logger *slog.Logger) (*Bot, error) {
	// Внутренний логгер библиотеки ведем через общий маскирующий логгер.
	_ = tgbotapi.SetLogger(&applog.TGBotAPIAdapter{Logger: logger})

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := &Bot{
		api:           api,
		cfg:           cfg,
		identities:    deps.Identities,
		postCounter:   deps.PostCounter,
		replyCounter:  deps.ReplyCounter,
		accepting:     deps.Accepting,
		pending:       deps.Pending,
		published:     deps.Published,
		logger:        logger,
		albums:        make(map[string]*albumAggregate),
		albumDebounce: time.Duration(cfg.AlbumDebounceMS) * time.Millisecond,
	}
	b.send = api.Send
	b.request = api.Request
	b.sendMediaGroup = api.SendMediaGroup
	b.copyMessage = api.CopyMessage
	return b, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate разбирает одно обновление. Паника в обработчике не должна
// ронять цикл приёма, поэтому ловим ее здесь.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic in update handler",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		// Команда может прийти подписью к медиа (/reply с вложением).
		// Путь только для администраторов: у обычного пользователя
		// подпись со слэшем остается обычной подписью к заявке.
		if b.cfg.IsAdmin(msg.From.ID) {
			if _, _, ok := captionCommand(msg); ok {
				b.handleCommand(ctx, msg)
				return
			}
		}
		b.handleSubmission(msg)
	}
}

// sendMessage отправляет сообщение и логирует ошибку, не прерывая обработку.
func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.send(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// reply отправляет простой текстовый ответ в указанный чат.
func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// replyHTML отправляет текстовый ответ с HTML-разметкой.
func (b *Bot) replyHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(msg)
}

// answerCallback закрывает callback коротким всплывающим текстом.
func (b *Bot) answerCallback(id, text string) {
	if _, err := b.request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Error("failed to answer callback", slog.String("error", err.Error()))
	}
}

// truncateError обрезает текст ошибки до размера, пригодного для показа
// администратору в чате.
func truncateError(err error) string {
	const limit = 200
	s := err.Error()
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
