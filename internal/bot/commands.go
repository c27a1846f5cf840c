package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"telegram-anon-bot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"
)

const (
	cmdStart        = "start"
	cmdHelp         = "help"
	cmdMyID         = "myid"
	cmdReply        = "reply"
	cmdTestUser     = "test_user"
	cmdStats        = "stats"
	cmdCheckIDs     = "check_ids"
	cmdListUsers    = "list_users"
	cmdToggleAccept = "toggle_accept"
	cmdBroadcast    = "broadcast"
)

// Телеграм ограничивает сообщение 4096 символами; оставляем запас на рамку.
const maxUserTableChars = 4000

// captionCommand выделяет команду из подписи к медиа: /reply с вложением
// приходит именно так, а библиотека распознает команды только в тексте.
func captionCommand(msg *tgbotapi.Message) (string, string, bool) {
	if msg.Caption == "" || !strings.HasPrefix(msg.Caption, "/") {
		return "", "", false
	}
	parts := strings.SplitN(msg.Caption[1:], " ", 2)
	cmd := parts[0]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	args := ""
	if len(parts) == 2 {
		args = parts[1]
	}
	return cmd, args, true
}

// handleCommand обрабатывает команды административной поверхности.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := msg.CommandArguments()
	if cmd == "" {
		var ok bool
		if cmd, args, ok = captionCommand(msg); !ok {
			return
		}
	}

	// Команды, доступные всем.
	switch cmd {
	case cmdStart:
		b.cmdStart(msg)
		return
	case cmdHelp:
		b.cmdHelp(msg)
		return
	case cmdMyID:
		b.cmdMyID(msg)
		return
	}

	// Все остальное — только администраторам; для прочих команда молча
	// игнорируется, чтобы не раскрывать административную поверхность.
	if !b.cfg.IsAdmin(msg.From.ID) {
		return
	}

	switch cmd {
	case cmdReply:
		b.cmdReply(msg, args)
	case cmdTestUser:
		b.cmdTestUser(msg, args)
	case cmdStats:
		b.cmdStats(msg)
	case cmdCheckIDs:
		b.cmdCheckIDs(msg)
	case cmdListUsers:
		b.cmdListUsers(msg)
	case cmdToggleAccept:
		b.cmdToggleAccept(msg)
	case cmdBroadcast:
		b.cmdBroadcast(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Я не знаю такой команды.")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	if name == "" {
		name = "друг"
	}
	b.replyHTML(msg.Chat.ID,
		fmt.Sprintf("✨ <b>Привет, %s!</b> ✨\n\n", name)+
			"🤫 Пиши сюда свои истории, а я анонимно отправлю их в канал\n\n"+
			"🔒 <b>Все абсолютно анонимно</b>\n"+
			"📝 Просто отправь мне текст, фото или видео\n\n"+
			"👇 Жду твои сообщения!")

	// Регистрируем пользователя при первом контакте.
	if _, err := b.identities.GetOrCreate(msg.From.ID); err != nil {
		b.logger.Error("не удалось зарегистрировать пользователя", slog.String("error", err.Error()))
	}
}

func (b *Bot) cmdHelp(msg *tgbotapi.Message) {
	if b.cfg.IsAdmin(msg.From.ID) {
		b.replyHTML(msg.Chat.ID,
			"🔧 <b>КОМАНДЫ АДМИНА</b>\n\n"+
				"/stats 📊 — статистика\n"+
				"/broadcast 📢 — рассылка (ответом на сообщение)\n"+
				"/toggle_accept 🔄 — вкл/выкл приём от админа\n"+
				"/reply &lt;ID&gt; &lt;текст&gt; 💬 — ответ пользователю\n"+
				"/list_users 📋 — список пользователей\n"+
				"/check_ids ✅ — проверить внутренние ID\n"+
				"/myid 🆔 — узнать свой ID\n"+
				"/test_user &lt;ID&gt; 🧪 — тест отправки\n\n"+
				"💡 Внутренний ID — номер пользователя (1, 2, 3...)")
		return
	}
	b.replyHTML(msg.Chat.ID,
		"📱 <b>/start</b> — начать\n"+
			"🆔 <b>/myid</b> — узнать свой внутренний ID")
}

func (b *Bot) cmdMyID(msg *tgbotapi.Message) {
	internalID, err := b.identities.GetOrCreate(msg.From.ID)
	if err != nil {
		b.logger.Error("не удалось получить внутренний id", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "😔 Не получилось определить ваш ID, попробуйте позже.")
		return
	}
	b.replyHTML(msg.Chat.ID, fmt.Sprintf(
		"🆔 <b>Ваш внутренний ID:</b> <code>%d</code>\n📱 Telegram ID: <code>%d</code>",
		internalID, msg.From.ID))
}

// cmdReply отправляет пользователю ответ администратора по внутреннему ID.
// Если команда пришла подписью к медиа, вложение уходит вместе с текстом.
func (b *Bot) cmdReply(msg *tgbotapi.Message, args string) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 {
		b.reply(msg.Chat.ID, "❌ Формат: /reply <внутренний_ID> <текст>")
		return
	}
	internalID, err := strconv.Atoi(parts[0])
	if err != nil {
		b.reply(msg.Chat.ID, "❌ ID должен быть числом")
		return
	}
	replyText := parts[1]

	externalID, err := b.identities.LookupExternal(internalID)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Пользователь с внутренним ID %d не найден", internalID))
		return
	}

	replyNumber, err := b.replyCounter.Next()
	if err != nil {
		b.logger.Error("не удалось получить номер ответа", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "❌ Ошибка: "+truncateError(err))
		return
	}

	body := "✉️ <b>Ответ от администратора:</b>\n\n" + replyText
	var out tgbotapi.Chattable
	switch {
	case len(msg.Photo) > 0:
		cfg := tgbotapi.NewPhoto(externalID, tgbotapi.FileID(msg.Photo[len(msg.Photo)-1].FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	case msg.Video != nil:
		cfg := tgbotapi.NewVideo(externalID, tgbotapi.FileID(msg.Video.FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	case msg.Document != nil:
		cfg := tgbotapi.NewDocument(externalID, tgbotapi.FileID(msg.Document.FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	case msg.Voice != nil:
		cfg := tgbotapi.NewVoice(externalID, tgbotapi.FileID(msg.Voice.FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	case msg.Audio != nil:
		cfg := tgbotapi.NewAudio(externalID, tgbotapi.FileID(msg.Audio.FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	case msg.Animation != nil:
		cfg := tgbotapi.NewAnimation(externalID, tgbotapi.FileID(msg.Animation.FileID))
		cfg.Caption = body
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	default:
		cfg := tgbotapi.NewMessage(externalID, body)
		cfg.ParseMode = tgbotapi.ModeHTML
		out = cfg
	}

	if _, err := b.send(out); err != nil {
		b.reply(msg.Chat.ID, "❌ Ошибка отправки: "+truncateError(err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Ответ №%d отправлен пользователю #%d", replyNumber, internalID))
}

func (b *Bot) cmdTestUser(msg *tgbotapi.Message, args string) {
	internalID, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Используйте: /test_user <внутренний_ID>")
		return
	}

	externalID, err := b.identities.LookupExternal(internalID)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ Пользователь с внутренним ID %d не найден", internalID))
		return
	}

	test := tgbotapi.NewMessage(externalID,
		"🧪 Тестовое сообщение от администратора.\nЕсли вы это видите — отправка работает! ✅")
	if _, err := b.send(test); err != nil {
		b.reply(msg.Chat.ID, "❌ Ошибка отправки: "+truncateError(err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Тест отправлен пользователю #%d", internalID))
}

func (b *Bot) cmdStats(msg *tgbotapi.Message) {
	published := 0
	if next, err := b.postCounter.Peek(); err == nil {
		published = next - 1
	} else {
		b.logger.Error("не удалось прочитать счётчик постов", slog.String("error", err.Error()))
	}

	accepting := "✅ включен"
	if !b.accepting.IsAccepting() {
		accepting = "❌ выключен"
	}

	b.replyHTML(msg.Chat.ID, fmt.Sprintf(
		"📊 <b>СТАТИСТИКА</b>\n"+
			"━━━━━━━━━━━━━━\n"+
			"👥 Пользователей: %d\n"+
			"📝 Выдано номеров: %d\n"+
			"⏳ В очереди: %d\n"+
			"🔄 Приём от админа: %s\n"+
			"━━━━━━━━━━━━━━",
		b.identities.Len(), published, b.pending.Len(), accepting))
}

func (b *Bot) cmdCheckIDs(msg *tgbotapi.Message) {
	repaired, err := b.identities.RepairDuplicates()
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Ошибка проверки: "+truncateError(err))
		return
	}
	if repaired {
		b.reply(msg.Chat.ID, "✅ Найдены дубликаты, внутренние ID перенумерованы")
		return
	}
	b.reply(msg.Chat.ID, "✅ Проверка завершена, дубликатов нет")
}

// cmdListUsers показывает таблицу соответствия внутренних и Telegram ID.
// Когда таблица перестает влезать в одно сообщение, уходит xlsx-файлом.
func (b *Bot) cmdListUsers(msg *tgbotapi.Message) {
	users := b.identities.All()
	if len(users) == 0 {
		b.reply(msg.Chat.ID, "❌ Нет пользователей")
		return
	}

	table := formatUserTable(users)
	if len(table) <= maxUserTableChars {
		b.replyHTML(msg.Chat.ID, fmt.Sprintf(
			"📋 <b>СПИСОК ПОЛЬЗОВАТЕЛЕЙ</b>\n<pre><code>%s</code></pre>\n👥 Всего: %d",
			table, len(users)))
		return
	}

	b.sendUserListAsExcel(msg.Chat.ID, users)
}

// formatUserTable рисует моноширинную таблицу, выравнивая колонки по
// фактической ширине символов.
func formatUserTable(users map[int64]int) string {
	type row struct {
		internal int
		telegram int64
	}
	rows := make([]row, 0, len(users))
	for tid, iid := range users {
		rows = append(rows, row{internal: iid, telegram: tid})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].internal < rows[j].internal })

	const (
		internalColWidth = 8
		telegramColWidth = 14
	)

	var sb strings.Builder
	sb.WriteString(padCell("Внутр.ID", internalColWidth) + " | " + padCell("Telegram ID", telegramColWidth) + "\n")
	sb.WriteString(strings.Repeat("-", internalColWidth) + "-+-" + strings.Repeat("-", telegramColWidth) + "\n")
	for _, r := range rows {
		sb.WriteString(padCell(strconv.Itoa(r.internal), internalColWidth) + " | " +
			padCell(strconv.FormatInt(r.telegram, 10), telegramColWidth) + "\n")
	}
	return sb.String()
}

func padCell(s string, width int) string {
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// sendUserListAsExcel выгружает реестр пользователей xlsx-файлом.
func (b *Bot) sendUserListAsExcel(chatID int64, users map[int64]int) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			b.logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	const sheetName = "Пользователи"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		b.logger.Error("failed to create excel sheet", slog.String("error", err.Error()))
		b.reply(chatID, "❌ Не удалось сформировать файл со списком")
		return
	}
	f.SetActiveSheet(index)

	exportDate := time.Now().Format(time.RFC3339)
	f.SetCellValue(sheetName, "A1", "Внутренний ID")
	f.SetCellValue(sheetName, "B1", "Telegram ID")
	f.SetCellValue(sheetName, "C1", "Дата экспорта")

	type row struct {
		internal int
		telegram int64
	}
	rows := make([]row, 0, len(users))
	for tid, iid := range users {
		rows = append(rows, row{internal: iid, telegram: tid})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].internal < rows[j].internal })

	for i, r := range rows {
		line := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", line), r.internal)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", line), r.telegram)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", line), exportDate)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.reply(chatID, "❌ Не удалось сформировать файл со списком")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("users_%s.xlsx", time.Now().Format("2006-01-02_15-04-05")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📋 Список пользователей: %d записей. Таблица слишком большая для сообщения.", len(users))
	b.sendMessage(doc)
}

func (b *Bot) cmdToggleAccept(msg *tgbotapi.Message) {
	newMode := !b.accepting.IsAccepting()
	if err := b.accepting.Set(newMode); err != nil {
		b.reply(msg.Chat.ID, "❌ Не удалось переключить режим: "+truncateError(err))
		return
	}
	state := "❌ ВЫКЛЮЧЕН"
	if newMode {
		state = "✅ ВКЛЮЧЕН"
	}
	b.replyHTML(msg.Chat.ID, "🔄 <b>Режим приёма от админа</b>\n"+state)
}

// cmdBroadcast рассылает сообщение, на которое ответил администратор, всем
// известным пользователям. Рассылка идет в фоне с фиксированной паузой между
// отправками, чтобы не упереться в лимиты Telegram.
func (b *Bot) cmdBroadcast(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(msg.Chat.ID, "❌ Ответьте командой на сообщение для рассылки")
		return
	}

	users := b.identities.All()
	if len(users) == 0 {
		b.reply(msg.Chat.ID, "❌ Нет пользователей")
		return
	}

	targets := make([]int64, 0, len(users))
	for tid := range users {
		targets = append(targets, tid)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	status, err := b.send(tgbotapi.NewMessage(msg.Chat.ID, "📤 Начинаю рассылку..."))
	if err != nil {
		b.logger.Error("не удалось отправить статус рассылки", slog.String("error", err.Error()))
	}

	source := domain.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ReplyToMessage.MessageID}
	go b.runBroadcast(ctx, msg.Chat.ID, status.MessageID, source, targets)
}

func (b *Bot) runBroadcast(ctx context.Context, adminChatID int64, statusMessageID int, source domain.MessageRef, targets []int64) {
	delay := time.Duration(b.cfg.BroadcastDelayMS) * time.Millisecond
	success, failed := 0, 0

	for _, uid := range targets {
		select {
		case <-ctx.Done():
			b.logger.Warn("рассылка прервана остановкой бота",
				slog.Int("sent", success), slog.Int("total", len(targets)))
			return
		default:
		}

		if err := b.broadcastTo(uid, source); err != nil {
			failed++
			b.logger.Error("ошибка рассылки пользователю",
				slog.Int64("telegram_id", uid), slog.String("error", err.Error()))
		} else {
			success++
		}
		time.Sleep(delay)
	}

	report := fmt.Sprintf(
		"✅ Рассылка завершена!\n\n📊 Статистика:\n✓ Успешно: %d\n✗ Ошибок: %d\n👥 Всего: %d",
		success, failed, len(targets))
	if statusMessageID != 0 {
		if _, err := b.request(tgbotapi.NewEditMessageText(adminChatID, statusMessageID, report)); err != nil {
			b.logger.Error("не удалось обновить статус рассылки", slog.String("error", err.Error()))
		}
		return
	}
	b.reply(adminChatID, report)
}

func (b *Bot) broadcastTo(uid int64, source domain.MessageRef) error {
	header := tgbotapi.NewMessage(uid, "📢 Сообщение от администратора:")
	if _, err := b.send(header); err != nil {
		return err
	}
	_, err := b.copyMessage(tgbotapi.NewCopyMessage(uid, source.ChatID, source.MessageID))
	return err
}
