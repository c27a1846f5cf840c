package bot

import (
	"fmt"

	"telegram-anon-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// joinFooter приклеивает футер к подписи через пустую строку.
func joinFooter(caption, footer string) string {
	switch {
	case footer == "":
		return caption
	case caption == "":
		return footer
	default:
		return caption + "\n\n" + footer
	}
}

// renderSubmission отправляет содержимое заявки в указанный чат, добавляя
// футер к подписи первого пригодного сообщения. Возвращает ссылки на все
// созданные сообщения. С пустым футером используется для превью
// администраторам.
func (b *Bot) renderSubmission(chatID int64, sub *domain.Submission, footer string) ([]domain.MessageRef, error) {
	// HTML-разметка нужна только футеру; превью шлем без parse_mode,
	// чтобы угловые скобки в тексте пользователя ничего не ломали.
	parseMode := ""
	if footer != "" {
		parseMode = tgbotapi.ModeHTML
	}

	switch sub.Kind {
	case domain.KindText:
		msg := tgbotapi.NewMessage(chatID, joinFooter(sub.Text, footer))
		msg.ParseMode = parseMode
		return b.sendOne(chatID, msg)

	case domain.KindPhoto:
		cfg := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindVideo:
		cfg := tgbotapi.NewVideo(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindVoice:
		cfg := tgbotapi.NewVoice(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindAudio:
		cfg := tgbotapi.NewAudio(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindAnimation:
		cfg := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindDocument:
		cfg := tgbotapi.NewDocument(chatID, tgbotapi.FileID(sub.FileID))
		cfg.Caption = joinFooter(sub.Caption, footer)
		cfg.ParseMode = parseMode
		return b.sendOne(chatID, cfg)

	case domain.KindVideoNote:
		// Кружок не умеет нести подпись: футер уходит следом отдельным
		// сообщением.
		refs, err := b.sendOne(chatID, tgbotapi.NewVideoNote(chatID, sub.NoteLength, tgbotapi.FileID(sub.FileID)))
		if err != nil {
			return nil, err
		}
		if trailing := joinFooter(sub.Caption, footer); trailing != "" {
			msg := tgbotapi.NewMessage(chatID, trailing)
			msg.ParseMode = parseMode
			more, err := b.sendOne(chatID, msg)
			if err != nil {
				return nil, err
			}
			refs = append(refs, more...)
		}
		return refs, nil

	case domain.KindAlbum:
		return b.renderAlbum(chatID, sub.Items, sub.Caption, footer, parseMode)

	default:
		return nil, fmt.Errorf("неизвестный тип заявки %q", sub.Kind)
	}
}

// sendOne отправляет одно сообщение и возвращает ссылку на него.
func (b *Bot) sendOne(chatID int64, cfg tgbotapi.Chattable) ([]domain.MessageRef, error) {
	sent, err := b.send(cfg)
	if err != nil {
		return nil, err
	}
	return []domain.MessageRef{{ChatID: chatID, MessageID: sent.MessageID}}, nil
}

// renderAlbum отправляет альбом: кружки поштучно (в медиа-группу они не
// входят), остальные фото и видео — одной групповой отправкой. Футер
// приклеивается к подписи первого элемента группы, а если группа пуста —
// уходит отдельным завершающим сообщением.
func (b *Bot) renderAlbum(chatID int64, items []domain.AlbumItem, caption, footer, parseMode string) ([]domain.MessageRef, error) {
	var refs []domain.MessageRef
	var grouped []domain.AlbumItem

	for _, item := range items {
		if item.Kind == domain.KindVideoNote {
			sent, err := b.sendOne(chatID, tgbotapi.NewVideoNote(chatID, item.NoteLength, tgbotapi.FileID(item.FileID)))
			if err != nil {
				return nil, err
			}
			refs = append(refs, sent...)
			continue
		}
		grouped = append(grouped, item)
	}

	switch len(grouped) {
	case 0:
		// Альбом из одних кружков: подпись и футер некуда приклеить,
		// отправляем их завершающим сообщением.
		if trailing := joinFooter(caption, footer); trailing != "" {
			msg := tgbotapi.NewMessage(chatID, trailing)
			msg.ParseMode = parseMode
			sent, err := b.sendOne(chatID, msg)
			if err != nil {
				return nil, err
			}
			refs = append(refs, sent...)
		}
	case 1:
		// Медиа-группа из одного элемента не принимается API.
		single := &domain.Submission{
			Kind:    grouped[0].Kind,
			FileID:  grouped[0].FileID,
			Caption: caption,
		}
		sent, err := b.renderSubmission(chatID, single, footer)
		if err != nil {
			return nil, err
		}
		refs = append(refs, sent...)
	default:
		files := make([]interface{}, 0, len(grouped))
		for i, item := range grouped {
			itemCaption := ""
			if i == 0 {
				itemCaption = joinFooter(caption, footer)
			}
			switch item.Kind {
			case domain.KindVideo:
				media := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(item.FileID))
				media.Caption = itemCaption
				media.ParseMode = parseMode
				files = append(files, media)
			default:
				media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(item.FileID))
				media.Caption = itemCaption
				media.ParseMode = parseMode
				files = append(files, media)
			}
		}
		sent, err := b.sendMediaGroup(tgbotapi.NewMediaGroup(chatID, files))
		if err != nil {
			return nil, err
		}
		for _, m := range sent {
			refs = append(refs, domain.MessageRef{ChatID: chatID, MessageID: m.MessageID})
		}
	}

	return refs, nil
}
