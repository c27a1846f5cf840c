package bot

import (
	"log/slog"
	"sort"
	"time"

	"telegram-anon-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// albumAggregate накапливает сообщения одной медиа-группы, пока не истечет
// дебаунс-таймер. Каждое новое сообщение группы сбрасывает таймер, поэтому
// сборка срабатывает ровно один раз — после последнего элемента.
type albumAggregate struct {
	items []*tgbotapi.Message
	timer *time.Timer
	first *tgbotapi.Message // несет подпись всего альбома
}

// bufferAlbumItem добавляет сообщение в агрегат его медиа-группы и
// перевзводит таймер сборки.
func (b *Bot) bufferAlbumItem(msg *tgbotapi.Message) {
	b.albumsMu.Lock()
	defer b.albumsMu.Unlock()

	groupID := msg.MediaGroupID
	agg, ok := b.albums[groupID]
	if !ok {
		agg = &albumAggregate{first: msg}
		b.albums[groupID] = agg
	}
	agg.items = append(agg.items, msg)

	if agg.timer != nil {
		agg.timer.Stop()
	}
	agg.timer = time.AfterFunc(b.albumDebounce, func() {
		b.settleAlbum(groupID)
	})
}

// settleAlbum собирает накопленный альбом в одну заявку. Если агрегат уже
// забран (таймер сработал наперегонки с перевзводом), это no-op.
func (b *Bot) settleAlbum(groupID string) {
	b.albumsMu.Lock()
	agg, ok := b.albums[groupID]
	if !ok {
		b.albumsMu.Unlock()
		return
	}
	delete(b.albums, groupID)
	b.albumsMu.Unlock()

	// Восстанавливаем исходный порядок: элементы могли прийти вперемешку.
	sort.Slice(agg.items, func(i, j int) bool {
		if agg.items[i].Date != agg.items[j].Date {
			return agg.items[i].Date < agg.items[j].Date
		}
		return agg.items[i].MessageID < agg.items[j].MessageID
	})

	items := make([]domain.AlbumItem, 0, len(agg.items))
	for _, msg := range agg.items {
		item, ok := albumItemFromMessage(msg)
		if !ok {
			b.logger.Warn("неподдерживаемый элемент альбома пропущен",
				slog.String("media_group_id", groupID),
				slog.Int("message_id", msg.MessageID))
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return
	}

	b.acceptSubmission(agg.first, &domain.Submission{
		Kind:    domain.KindAlbum,
		Caption: agg.first.Caption,
		Items:   items,
	})
}

// albumItemFromMessage извлекает медиа из сообщения альбома.
// В медиа-группах Telegram встречаются фото, видео и кружки.
func albumItemFromMessage(msg *tgbotapi.Message) (domain.AlbumItem, bool) {
	switch {
	case len(msg.Photo) > 0:
		// Последний элемент — максимальное разрешение.
		return domain.AlbumItem{Kind: domain.KindPhoto, FileID: msg.Photo[len(msg.Photo)-1].FileID}, true
	case msg.Video != nil:
		return domain.AlbumItem{Kind: domain.KindVideo, FileID: msg.Video.FileID}, true
	case msg.VideoNote != nil:
		return domain.AlbumItem{
			Kind:       domain.KindVideoNote,
			FileID:     msg.VideoNote.FileID,
			NoteLength: msg.VideoNote.Length,
		}, true
	default:
		return domain.AlbumItem{}, false
	}
}
