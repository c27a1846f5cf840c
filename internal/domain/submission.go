package domain

import "time"

// ContentKind определяет тип содержимого заявки.
type ContentKind string

const (
	KindText      ContentKind = "text"
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindVideoNote ContentKind = "video_note" // кружок
	KindVoice     ContentKind = "voice"
	KindAudio     ContentKind = "audio"
	KindAnimation ContentKind = "animation"
	KindDocument  ContentKind = "document"
	KindAlbum     ContentKind = "album"
)

// MessageRef указывает на конкретное сообщение в конкретном чате.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// AlbumItem — один элемент альбома (медиа-группы).
type AlbumItem struct {
	Kind       ContentKind // photo, video или video_note
	FileID     string
	NoteLength int // диаметр кружка, нужен только для video_note
}

// Submission — одна заявка, ожидающая решения модератора.
// Для текстовых заявок тело хранится в Text, для одиночных медиа —
// в FileID с подписью Caption, для альбомов — в Items.
type Submission struct {
	Token      string // уникальный одноразовый токен заявки
	InternalID int    // внутренний номер отправителя
	PostNumber int
	Kind       ContentKind
	Text       string
	FileID     string
	NoteLength int
	Caption    string
	Items      []AlbumItem
	Origin     MessageRef // исходное сообщение отправителя, для превью и ответа
	CreatedAt  time.Time
}

// PublishedPost — все сообщения канала, созданные одной одобренной заявкой.
// Хранится до удаления поста администратором либо до конца жизни процесса.
type PublishedPost struct {
	GroupToken string
	Messages   []MessageRef
	InternalID int
	PostNumber int
	Token      string // токен исходной заявки
}
