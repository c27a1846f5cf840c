package bot

import (
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"telegram-anon-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// handleSubmission обрабатывает входящее сообщение пользователя как заявку
// на анонимную публикацию.
func (b *Bot) handleSubmission(msg *tgbotapi.Message) {
	// Когда приём выключен, сообщения администраторов молча игнорируются:
	// так админ может переписываться с ботом, не плодя заявки.
	if b.cfg.IsAdmin(msg.From.ID) && !b.accepting.IsAccepting() {
		b.logger.Debug("сообщение администратора отброшено: приём выключен",
			slog.Int64("telegram_id", msg.From.ID))
		return
	}

	if msg.MediaGroupID != "" {
		b.bufferAlbumItem(msg)
		return
	}

	sub, ok := classifyMessage(msg)
	if !ok {
		b.reply(msg.Chat.ID, "🤷 Такой тип сообщения я публиковать не умею. Отправьте текст, фото, видео или голосовое.")
		return
	}
	b.acceptSubmission(msg, sub)
}

// classifyMessage определяет тип содержимого одиночного сообщения.
func classifyMessage(msg *tgbotapi.Message) (*domain.Submission, bool) {
	switch {
	case len(msg.Photo) > 0:
		return &domain.Submission{
			Kind:    domain.KindPhoto,
			FileID:  msg.Photo[len(msg.Photo)-1].FileID,
			Caption: msg.Caption,
		}, true
	case msg.Video != nil:
		return &domain.Submission{Kind: domain.KindVideo, FileID: msg.Video.FileID, Caption: msg.Caption}, true
	case msg.VideoNote != nil:
		return &domain.Submission{
			Kind:       domain.KindVideoNote,
			FileID:     msg.VideoNote.FileID,
			NoteLength: msg.VideoNote.Length,
		}, true
	case msg.Voice != nil:
		return &domain.Submission{Kind: domain.KindVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}, true
	case msg.Audio != nil:
		return &domain.Submission{Kind: domain.KindAudio, FileID: msg.Audio.FileID, Caption: msg.Caption}, true
	case msg.Animation != nil:
		return &domain.Submission{Kind: domain.KindAnimation, FileID: msg.Animation.FileID, Caption: msg.Caption}, true
	case msg.Document != nil:
		return &domain.Submission{Kind: domain.KindDocument, FileID: msg.Document.FileID, Caption: msg.Caption}, true
	case strings.TrimSpace(msg.Text) != "":
		return &domain.Submission{Kind: domain.KindText, Text: msg.Text}, true
	default:
		return nil, false
	}
}

// acceptSubmission присваивает заявке внутренний номер отправителя, номер
// поста и токен, ставит ее в очередь модерации и рассылает карточку
// администраторам.
func (b *Bot) acceptSubmission(origin *tgbotapi.Message, sub *domain.Submission) {
	internalID, err := b.identities.GetOrCreate(origin.From.ID)
	if err != nil {
		b.logger.Error("не удалось получить внутренний id", slog.String("error", err.Error()))
		b.reply(origin.Chat.ID, "😔 Не получилось принять сообщение, попробуйте позже.")
		return
	}

	postNumber, err := b.postCounter.Next()
	if err != nil {
		b.logger.Error("не удалось получить номер поста", slog.String("error", err.Error()))
		b.reply(origin.Chat.ID, "😔 Не получилось принять сообщение, попробуйте позже.")
		return
	}

	sub.Token = uuid.NewString()
	sub.InternalID = internalID
	sub.PostNumber = postNumber
	sub.Origin = domain.MessageRef{ChatID: origin.Chat.ID, MessageID: origin.MessageID}
	sub.CreatedAt = time.Now()

	b.pending.Put(sub)
	b.fanOutModerationCard(sub, origin)

	b.replyHTML(origin.Chat.ID, fmt.Sprintf(
		"📨 Сообщение принято!\nНомер поста: <b>#%d</b>\nОжидайте решения модератора.", postNumber))
}

// fanOutModerationCard доставляет карточку модерации каждому администратору.
// Сбой доставки одному администратору не мешает остальным.
func (b *Bot) fanOutModerationCard(sub *domain.Submission, origin *tgbotapi.Message) {
	cardText := moderationCardText(sub, origin.From)
	keyboard := moderationKeyboard(sub)

	for _, adminID := range b.cfg.AdminIDs {
		if err := b.sendModerationCard(adminID, sub, cardText, keyboard); err != nil {
			b.logger.Error("не удалось доставить карточку модерации",
				slog.Int64("admin_id", adminID),
				slog.String("error", err.Error()))
		}
	}
}

// sendModerationCard отправляет одному администратору превью содержимого и
// карточку с кнопками решения.
func (b *Bot) sendModerationCard(adminID int64, sub *domain.Submission, cardText string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	if sub.Kind == domain.KindAlbum {
		// Альбом пересобираем из file_id: исходные сообщения пришли
		// поштучно и копировать их по одному смысла нет.
		if _, err := b.renderSubmission(adminID, sub, ""); err != nil {
			return err
		}
	} else {
		preview := tgbotapi.NewCopyMessage(adminID, sub.Origin.ChatID, sub.Origin.MessageID)
		if _, err := b.copyMessage(preview); err != nil {
			return err
		}
	}

	msg := tgbotapi.NewMessage(adminID, cardText)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.send(msg)
	return err
}

// moderationCardText собирает текст карточки: метаданные отправителя и поста.
func moderationCardText(sub *domain.Submission, from *tgbotapi.User) string {
	username := "нет"
	if from.UserName != "" {
		username = "@" + from.UserName
	}
	fullName := strings.TrimSpace(from.FirstName + " " + from.LastName)
	if fullName == "" {
		fullName = "не указано"
	}

	var sb strings.Builder
	sb.WriteString("📨 <b>Анонимная заявка</b>\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&sb, "🆔 Внутренний ID: <code>%d</code>\n", sub.InternalID)
	fmt.Fprintf(&sb, "📱 Telegram ID: <code>%d</code>\n", from.ID)
	fmt.Fprintf(&sb, "👤 Имя: %s\n", html.EscapeString(fullName))
	fmt.Fprintf(&sb, "🔗 Username: %s\n", html.EscapeString(username))
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&sb, "📝 Номер поста: <code>%d</code>\n", sub.PostNumber)
	fmt.Fprintf(&sb, "📎 Тип: %s", kindLabel(sub.Kind))
	if sub.Kind == domain.KindAlbum {
		fmt.Fprintf(&sb, " (%d шт.)", len(sub.Items))
	}
	return sb.String()
}

// moderationKeyboard строит кнопки решения, привязанные к заявке.
func moderationKeyboard(sub *domain.Submission) tgbotapi.InlineKeyboardMarkup {
	approve := approveAction{InternalID: sub.InternalID, PostNumber: sub.PostNumber, Token: sub.Token}
	decline := declineAction{InternalID: sub.InternalID, PostNumber: sub.PostNumber, Token: sub.Token}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Опубликовать", approve.callbackData()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", decline.callbackData()),
		),
	)
}

func kindLabel(kind domain.ContentKind) string {
	switch kind {
	case domain.KindText:
		return "текст"
	case domain.KindPhoto:
		return "фото"
	case domain.KindVideo:
		return "видео"
	case domain.KindVideoNote:
		return "кружок"
	case domain.KindVoice:
		return "голосовое"
	case domain.KindAudio:
		return "аудио"
	case domain.KindAnimation:
		return "гифка"
	case domain.KindDocument:
		return "документ"
	case domain.KindAlbum:
		return "альбом"
	default:
		return string(kind)
	}
}
