package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleUpdate_Routing(t *testing.T) {
	t.Run("текст становится заявкой", func(t *testing.T) {
		b, _ := newTestBot(t)

		b.handleUpdate(context.Background(), tgbotapi.Update{Message: newUserMessage(testUserID, "привет")})

		assert.Equal(t, 1, b.pending.Len())
	})

	t.Run("команда не становится заявкой", func(t *testing.T) {
		b, _ := newTestBot(t)

		b.handleUpdate(context.Background(), tgbotapi.Update{Message: newCommandMessage(testUserID, "/start")})

		assert.Equal(t, 0, b.pending.Len())
		assert.Equal(t, 1, b.identities.Len())
	})

	t.Run("команда в подписи к медиа не становится заявкой", func(t *testing.T) {
		b, _ := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)

		msg := newUserMessage(testAdminA, "")
		msg.Caption = "/reply 1 ответ"
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo-1"}}
		b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})

		assert.Equal(t, 0, b.pending.Len())
	})

	t.Run("подпись со слэшем у обычного пользователя остается заявкой", func(t *testing.T) {
		b, l := newTestBot(t)

		msg := newUserMessage(testUserID, "")
		msg.Caption = "/shrug"
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo-1"}}
		b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})

		assert.Equal(t, 1, b.pending.Len())
		acks := l.messagesTo(testUserID)
		require.NotEmpty(t, acks)
		assert.Contains(t, acks[len(acks)-1], "#1")
	})

	t.Run("callback уходит в модерацию", func(t *testing.T) {
		b, l := newTestBot(t)

		b.handleUpdate(context.Background(), tgbotapi.Update{
			CallbackQuery: newCallback(testAdminA, deleteAction{GroupToken: "нет"}.callbackData()),
		})

		assert.NotEmpty(t, l.callbackAnswers())
	})

	t.Run("сообщение без отправителя игнорируется", func(t *testing.T) {
		b, _ := newTestBot(t)

		b.handleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "канал"}})

		assert.Equal(t, 0, b.pending.Len())
	})
}

func TestHandleUpdate_RecoversFromPanic(t *testing.T) {
	b, _ := newTestBot(t)
	b.send = func(tgbotapi.Chattable) (tgbotapi.Message, error) {
		panic("транспорт сломан")
	}

	assert.NotPanics(t, func() {
		b.handleUpdate(context.Background(), tgbotapi.Update{Message: newUserMessage(testUserID, "привет")})
	})
}

func TestTruncateError(t *testing.T) {
	short := errors.New("короткая ошибка")
	assert.Equal(t, "короткая ошибка", truncateError(short))

	long := errors.New(strings.Repeat("x", 300))
	got := truncateError(long)
	assert.Len(t, got, 203)
	assert.True(t, strings.HasSuffix(got, "..."))
}
