package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCommandMessage строит сообщение с командой и размеченной entity,
// как его присылает Telegram.
func newCommandMessage(from int64, text string) *tgbotapi.Message {
	msg := newUserMessage(from, text)
	cmdLen := len(text)
	if sp := strings.Index(text, " "); sp >= 0 {
		cmdLen = sp
	}
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	return msg
}

func TestCaptionCommand(t *testing.T) {
	tests := []struct {
		name     string
		caption  string
		wantCmd  string
		wantArgs string
		wantOK   bool
	}{
		{"команда с аргументами", "/reply 3 привет", "reply", "3 привет", true},
		{"команда с упоминанием бота", "/reply@anon_bot 3 привет", "reply", "3 привет", true},
		{"команда без аргументов", "/stats", "stats", "", true},
		{"обычная подпись", "просто подпись", "", "", false},
		{"пустая подпись", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &tgbotapi.Message{Caption: tt.caption}
			cmd, args, ok := captionCommand(msg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCmdStart_RegistersUser(t *testing.T) {
	b, l := newTestBot(t)

	b.handleCommand(context.Background(), newCommandMessage(testUserID, "/start"))

	require.Equal(t, 1, b.identities.Len())
	greetings := l.messagesTo(testUserID)
	require.NotEmpty(t, greetings)
	assert.Contains(t, greetings[0], "Привет")
}

func TestCmdMyID(t *testing.T) {
	b, l := newTestBot(t)

	b.handleCommand(context.Background(), newCommandMessage(testUserID, "/myid"))

	replies := l.messagesTo(testUserID)
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0], "<code>1</code>")
}

func TestAdminCommands_SilentForNonAdmins(t *testing.T) {
	b, l := newTestBot(t)

	b.handleCommand(context.Background(), newCommandMessage(testUserID, "/stats"))
	b.handleCommand(context.Background(), newCommandMessage(testUserID, "/toggle_accept"))

	// Административная поверхность не раскрывается даже отказом.
	assert.Empty(t, l.messagesTo(testUserID))
	assert.True(t, b.accepting.IsAccepting())
}

func TestCmdReply(t *testing.T) {
	t.Run("текстовый ответ доставляется по внутреннему ID", func(t *testing.T) {
		b, l := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/reply 1 спасибо за сигнал"))

		delivered := l.messagesTo(testUserID)
		require.Len(t, delivered, 1)
		assert.Contains(t, delivered[0], "Ответ от администратора")
		assert.Contains(t, delivered[0], "спасибо за сигнал")

		acks := l.messagesTo(testAdminA)
		require.NotEmpty(t, acks)
		assert.Contains(t, acks[len(acks)-1], "Ответ №1")
	})

	t.Run("неизвестный внутренний ID", func(t *testing.T) {
		b, l := newTestBot(t)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/reply 42 привет"))

		acks := l.messagesTo(testAdminA)
		require.NotEmpty(t, acks)
		assert.Contains(t, acks[0], "не найден")
	})

	t.Run("неполные аргументы", func(t *testing.T) {
		b, l := newTestBot(t)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/reply 1"))

		acks := l.messagesTo(testAdminA)
		require.NotEmpty(t, acks)
		assert.Contains(t, acks[0], "Формат")
	})

	t.Run("вложение уходит вместе с текстом", func(t *testing.T) {
		b, l := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)

		msg := newUserMessage(testAdminA, "")
		msg.Caption = "/reply 1 смотри фото"
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "photo-1"}}
		b.handleCommand(context.Background(), msg)

		l.mu.Lock()
		defer l.mu.Unlock()
		var photo tgbotapi.PhotoConfig
		found := false
		for _, c := range l.sent {
			if p, ok := c.(tgbotapi.PhotoConfig); ok {
				photo = p
				found = true
			}
		}
		require.True(t, found, "ожидалась отправка фото")
		assert.Equal(t, testUserID, photo.ChatID)
		assert.Contains(t, photo.Caption, "смотри фото")
	})
}

func TestCmdStats(t *testing.T) {
	b, l := newTestBot(t)
	b.handleSubmission(newUserMessage(testUserID, "привет"))

	b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/stats"))

	replies := l.messagesTo(testAdminA)
	require.NotEmpty(t, replies)
	stats := replies[len(replies)-1]
	assert.Contains(t, stats, "Пользователей: 1")
	assert.Contains(t, stats, "Выдано номеров: 1")
	assert.Contains(t, stats, "В очереди: 1")
	assert.Contains(t, stats, "включен")
}

func TestCmdToggleAccept(t *testing.T) {
	b, l := newTestBot(t)

	b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/toggle_accept"))
	assert.False(t, b.accepting.IsAccepting())

	b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/toggle_accept"))
	assert.True(t, b.accepting.IsAccepting())

	replies := l.messagesTo(testAdminA)
	require.Len(t, replies, 2)
	assert.Contains(t, replies[0], "ВЫКЛЮЧЕН")
	assert.Contains(t, replies[1], "ВКЛЮЧЕН")
}

func TestCmdCheckIDs(t *testing.T) {
	b, l := newTestBot(t)
	_, err := b.identities.GetOrCreate(testUserID)
	require.NoError(t, err)

	b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/check_ids"))

	replies := l.messagesTo(testAdminA)
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0], "дубликатов нет")
}

func TestCmdListUsers(t *testing.T) {
	t.Run("таблица в сообщении", func(t *testing.T) {
		b, l := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)
		_, err = b.identities.GetOrCreate(222)
		require.NoError(t, err)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/list_users"))

		replies := l.messagesTo(testAdminA)
		require.NotEmpty(t, replies)
		table := replies[0]
		assert.Contains(t, table, "111")
		assert.Contains(t, table, "222")
		assert.Contains(t, table, "Всего: 2")
	})

	t.Run("большой реестр уходит xlsx-файлом", func(t *testing.T) {
		b, l := newTestBot(t)
		for i := int64(0); i < 200; i++ {
			_, err := b.identities.GetOrCreate(100000 + i)
			require.NoError(t, err)
		}

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/list_users"))

		l.mu.Lock()
		defer l.mu.Unlock()
		var doc tgbotapi.DocumentConfig
		found := false
		for _, c := range l.sent {
			if d, ok := c.(tgbotapi.DocumentConfig); ok {
				doc = d
				found = true
			}
		}
		require.True(t, found, "ожидался xlsx-документ вместо сообщения")
		file, ok := doc.File.(tgbotapi.FileBytes)
		require.True(t, ok)
		assert.Contains(t, file.Name, ".xlsx")
		assert.NotEmpty(t, file.Bytes)
	})

	t.Run("пустой реестр", func(t *testing.T) {
		b, l := newTestBot(t)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/list_users"))

		replies := l.messagesTo(testAdminA)
		require.NotEmpty(t, replies)
		assert.Contains(t, replies[0], "Нет пользователей")
	})
}

func TestFormatUserTable_SortedByInternalID(t *testing.T) {
	table := formatUserTable(map[int64]int{
		555: 2,
		111: 1,
		999: 3,
	})

	lines := strings.Split(strings.TrimRight(table, "\n"), "\n")
	require.Len(t, lines, 5) // шапка, разделитель и три строки
	assert.Contains(t, lines[2], "111")
	assert.Contains(t, lines[3], "555")
	assert.Contains(t, lines[4], "999")
}

func TestCmdBroadcast(t *testing.T) {
	t.Run("рассылает всем и обновляет статус", func(t *testing.T) {
		b, l := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)
		_, err = b.identities.GetOrCreate(222)
		require.NoError(t, err)

		msg := newCommandMessage(testAdminA, "/broadcast")
		msg.ReplyToMessage = &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: testAdminA}}
		b.handleCommand(context.Background(), msg)

		require.Eventually(t, func() bool {
			l.mu.Lock()
			defer l.mu.Unlock()
			for _, c := range l.requests {
				if edit, ok := c.(tgbotapi.EditMessageTextConfig); ok &&
					strings.Contains(edit.Text, "Рассылка завершена") {
					return true
				}
			}
			return false
		}, time.Second, 5*time.Millisecond)

		// Каждому пользователю ушел заголовок рассылки.
		assert.NotEmpty(t, l.messagesTo(testUserID))
		assert.NotEmpty(t, l.messagesTo(222))
	})

	t.Run("без сообщения-источника отказывает", func(t *testing.T) {
		b, l := newTestBot(t)
		_, err := b.identities.GetOrCreate(testUserID)
		require.NoError(t, err)

		b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/broadcast"))

		replies := l.messagesTo(testAdminA)
		require.NotEmpty(t, replies)
		assert.Contains(t, replies[0], "Ответьте командой")
	})
}

func TestUnknownAdminCommand(t *testing.T) {
	b, l := newTestBot(t)

	b.handleCommand(context.Background(), newCommandMessage(testAdminA, "/selfdestruct"))

	replies := l.messagesTo(testAdminA)
	require.NotEmpty(t, replies)
	assert.Contains(t, replies[0], "не знаю")
}
