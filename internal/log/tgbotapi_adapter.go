package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter подгоняет slog.Logger под интерфейс tgbotapi.BotLogger,
// чтобы внутренние сообщения библиотеки шли через общий маскирующий логгер.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
