// Package log содержит обвязку над log/slog: маскировку токена бота в
// записях лога и адаптер логгера для библиотеки go-telegram-bot-api.
package log

import (
	"context"
	"log/slog"
	"regexp"
)

// Токен Telegram-бота попадает в URL каждого запроса к API, поэтому любая
// ошибка транспорта тянет его в лог. Маскируем формат bot<ID>:<secret>.
var botTokenRe = regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`)

const tokenMask = "bot***:***masked-token***"

func maskTokens(s string) string {
	return botTokenRe.ReplaceAllString(s, tokenMask)
}

// MaskingHandler — обертка над slog.Handler, маскирующая токен бота
// в сообщении и строковых атрибутах записи.
type MaskingHandler struct {
	next slog.Handler
}

// NewMaskedLogger создает slog.Logger, пропускающий все записи через
// маскировку токена.
func NewMaskedLogger(next slog.Handler) *slog.Logger {
	return slog.New(&MaskingHandler{next: next})
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	// Исходную запись не трогаем: собираем новую, в которую атрибуты
	// попадают только в маскированном виде.
	masked := slog.NewRecord(record.Time, record.Level, maskTokens(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(slog.Attr{Key: a.Key, Value: maskValue(a.Value)})
		return true
	})
	return h.next.Handle(ctx, masked)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func maskValue(v slog.Value) slog.Value {
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(maskTokens(v.String()))
	case slog.KindAny:
		// Ошибки транспорта несут токен внутри URL запроса.
		if err, ok := v.Any().(error); ok {
			return slog.StringValue(maskTokens(err.Error()))
		}
		return v
	case slog.KindGroup:
		group := v.Group()
		masked := make([]slog.Attr, len(group))
		for i, a := range group {
			masked[i] = slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
		}
		return slog.GroupValue(masked...)
	default:
		return v
	}
}
