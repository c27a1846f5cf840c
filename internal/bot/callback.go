package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// Callback-данные инлайн-кнопок кодируются строкой с разделителем ":"
// только на границе с Telegram; внутри бота действия представлены
// типизированными структурами.

const (
	opApprove = "approve"
	opDecline = "decline"
	opDelete  = "delete"
)

// approveAction — публикация заявки в канал.
type approveAction struct {
	InternalID int
	PostNumber int
	Token      string
}

// declineAction — отклонение заявки с уведомлением отправителя.
type declineAction struct {
	InternalID int
	PostNumber int
	Token      string
}

// deleteAction — удаление ранее опубликованного поста из канала.
type deleteAction struct {
	GroupToken string
}

func (a approveAction) callbackData() string {
	return fmt.Sprintf("%s:%d:%d:%s", opApprove, a.InternalID, a.PostNumber, a.Token)
}

func (a declineAction) callbackData() string {
	return fmt.Sprintf("%s:%d:%d:%s", opDecline, a.InternalID, a.PostNumber, a.Token)
}

func (a deleteAction) callbackData() string {
	return fmt.Sprintf("%s:%s", opDelete, a.GroupToken)
}

// decodeCallback разбирает callback-строку в одно из действий модерации.
// Возвращаемое значение — approveAction, declineAction или deleteAction.
func decodeCallback(data string) (interface{}, error) {
	parts := strings.Split(data, ":")
	switch parts[0] {
	case opApprove, opDecline:
		if len(parts) != 4 {
			return nil, fmt.Errorf("некорректный callback %q: ожидалось 4 поля", data)
		}
		internalID, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("некорректный внутренний id в callback %q: %w", data, err)
		}
		postNumber, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("некорректный номер поста в callback %q: %w", data, err)
		}
		if parts[3] == "" {
			return nil, fmt.Errorf("пустой токен в callback %q", data)
		}
		if parts[0] == opApprove {
			return approveAction{InternalID: internalID, PostNumber: postNumber, Token: parts[3]}, nil
		}
		return declineAction{InternalID: internalID, PostNumber: postNumber, Token: parts[3]}, nil
	case opDelete:
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("некорректный callback %q: ожидался групповой токен", data)
		}
		return deleteAction{GroupToken: parts[1]}, nil
	default:
		return nil, fmt.Errorf("неизвестное действие в callback %q", data)
	}
}
