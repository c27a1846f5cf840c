package bot

import (
	"fmt"
	"log/slog"

	"telegram-anon-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// handleCallback обрабатывает нажатие инлайн-кнопки модерации.
func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.From == nil || !b.cfg.IsAdmin(cq.From.ID) {
		b.answerCallback(cq.ID, "⛔ Недостаточно прав")
		return
	}

	action, err := decodeCallback(cq.Data)
	if err != nil {
		b.logger.Warn("некорректный callback", slog.String("data", cq.Data), slog.String("error", err.Error()))
		b.answerCallback(cq.ID, "⚠️ Некорректный запрос")
		return
	}

	switch a := action.(type) {
	case approveAction:
		b.approve(cq, a)
	case declineAction:
		b.decline(cq, a)
	case deleteAction:
		b.deletePost(cq, a)
	}
}

// approve публикует заявку в канал. Токен потребляется ровно один раз:
// повторное нажатие по уже решенной заявке получает "не найдена".
func (b *Bot) approve(cq *tgbotapi.CallbackQuery, a approveAction) {
	sub, ok := b.pending.Take(a.Token)
	if !ok {
		b.answerCallback(cq.ID, "⚠️ Заявка не найдена или уже обработана")
		return
	}

	externalID, err := b.identities.LookupExternal(sub.InternalID)
	if err != nil {
		// Пользователь пропал из реестра (например, после перенумерации).
		// Возвращаем заявку в очередь, чтобы ее можно было решить позже.
		b.pending.Put(sub)
		b.answerCallback(cq.ID, fmt.Sprintf("⚠️ Пользователь с внутренним ID %d не найден", sub.InternalID))
		return
	}

	refs, err := b.renderSubmission(b.cfg.ChannelID, sub, b.cfg.FooterText)
	if err != nil {
		b.logger.Error("не удалось опубликовать пост",
			slog.Int("post", sub.PostNumber), slog.String("error", err.Error()))
		b.answerCallback(cq.ID, "❌ Ошибка публикации: "+truncateError(err))
		return
	}

	groupToken := uuid.NewString()
	b.published.Put(&domain.PublishedPost{
		GroupToken: groupToken,
		Messages:   refs,
		InternalID: sub.InternalID,
		PostNumber: sub.PostNumber,
		Token:      sub.Token,
	})

	// Уведомление отправителя — best effort: заблокировавший бота
	// пользователь не должен ломать публикацию.
	notice := tgbotapi.NewMessage(externalID, fmt.Sprintf("🎉 Ваш пост #%d опубликован в канале!", sub.PostNumber))
	if _, err := b.send(notice); err != nil {
		b.logger.Warn("не удалось уведомить отправителя о публикации",
			slog.Int("post", sub.PostNumber), slog.String("error", err.Error()))
	}

	b.retractCard(cq, fmt.Sprintf("✅ Опубликован (пост #%d)", sub.PostNumber), &groupToken)
	b.answerCallback(cq.ID, "✅ Опубликовано")
}

// decline отклоняет заявку: пост в канал не уходит, отправитель получает
// уведомление (best effort).
func (b *Bot) decline(cq *tgbotapi.CallbackQuery, a declineAction) {
	sub, ok := b.pending.Take(a.Token)
	if !ok {
		b.answerCallback(cq.ID, "⚠️ Заявка не найдена или уже обработана")
		return
	}

	if externalID, err := b.identities.LookupExternal(sub.InternalID); err == nil {
		notice := tgbotapi.NewMessage(externalID, fmt.Sprintf("😔 Ваш пост #%d отклонен модератором.", sub.PostNumber))
		if _, err := b.send(notice); err != nil {
			b.logger.Warn("не удалось уведомить отправителя об отклонении",
				slog.Int("post", sub.PostNumber), slog.String("error", err.Error()))
		}
	}

	b.retractCard(cq, fmt.Sprintf("❌ Отклонен (пост #%d)", sub.PostNumber), nil)
	b.answerCallback(cq.ID, "❌ Отклонено")
}

// deletePost удаляет из канала все сообщения ранее опубликованного поста.
// Каждое удаление — best effort: уже удаленное вручную сообщение не мешает
// удалить остальные.
func (b *Bot) deletePost(cq *tgbotapi.CallbackQuery, a deleteAction) {
	post, ok := b.published.Take(a.GroupToken)
	if !ok {
		b.answerCallback(cq.ID, "⚠️ Пост не найден или уже удален")
		return
	}

	deleted := 0
	for _, ref := range post.Messages {
		if _, err := b.request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
			b.logger.Warn("не удалось удалить сообщение из канала",
				slog.Int64("chat_id", ref.ChatID),
				slog.Int("message_id", ref.MessageID),
				slog.String("error", err.Error()))
			continue
		}
		deleted++
	}

	b.retractCard(cq, fmt.Sprintf("🗑 Пост #%d удален из канала (%d/%d сообщений)",
		post.PostNumber, deleted, len(post.Messages)), nil)
	b.answerCallback(cq.ID, fmt.Sprintf("🗑 Удалено сообщений: %d", deleted))
}

// retractCard дописывает вердикт в карточку модерации и заменяет клавиатуру:
// после approve остается одна кнопка удаления поста, после остальных решений
// кнопок не остается. Правка карточки — best effort.
func (b *Bot) retractCard(cq *tgbotapi.CallbackQuery, verdict string, groupToken *string) {
	if cq.Message == nil {
		return
	}

	text := cq.Message.Text + "\n\n" + verdict
	var edit tgbotapi.Chattable
	if groupToken != nil {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить пост из канала",
					deleteAction{GroupToken: *groupToken}.callbackData()),
			),
		)
		edit = tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
	} else {
		edit = tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
	}

	if _, err := b.request(edit); err != nil {
		b.logger.Warn("не удалось обновить карточку модерации", slog.String("error", err.Error()))
	}
}
