package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// AcceptingFlag — персистентный переключатель приёма заявок от
// администраторов. Когда флаг выключен, сообщения администраторов не
// превращаются в заявки: так админ может писать боту команды и при этом
// случайно не отправить свой текст на модерацию самому себе.
type AcceptingFlag struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewAcceptingFlag создает флаг поверх указанного файла.
func NewAcceptingFlag(path string, logger *slog.Logger) *AcceptingFlag {
	return &AcceptingFlag{path: path, logger: logger}
}

// IsAccepting возвращает текущее состояние флага. Отсутствующий файл и любое
// содержимое, кроме литерала "off", трактуются как включенный приём.
func (f *AcceptingFlag) IsAccepting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warn("не удалось прочитать флаг приёма, считаем включенным",
				slog.String("path", f.path), slog.String("error", err.Error()))
		}
		return true
	}
	return strings.TrimSpace(string(data)) != "off"
}

// Set записывает новое состояние флага на диск.
func (f *AcceptingFlag) Set(accepting bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	value := "off"
	if accepting {
		value = "on"
	}
	if err := os.WriteFile(f.path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("не удалось сохранить флаг приёма %s: %w", f.path, err)
	}
	return nil
}
