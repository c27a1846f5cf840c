package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// SequenceCounter — персистентный монотонный счётчик, хранящий одно число
// в файле. Next возвращает текущее значение и записывает следующее на диск
// до возврата, поэтому перезапуск процесса номер не повторит.
type SequenceCounter struct {
	mu   sync.Mutex
	path string
}

// NewSequenceCounter создает счётчик поверх указанного файла.
// Файл создается лениво при первом инкременте.
func NewSequenceCounter(path string) *SequenceCounter {
	return &SequenceCounter{path: path}
}

func (c *SequenceCounter) readLocked() (int, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 1, nil
		}
		return 0, fmt.Errorf("не удалось прочитать счётчик %s: %w", c.path, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("некорректное содержимое счётчика %s: %w", c.path, err)
	}
	return n, nil
}

// Next возвращает очередной номер. Инкрементированное значение сохраняется
// на диск до того, как номер будет отдан вызывающему.
func (c *SequenceCounter) Next() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.readLocked()
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(c.path, []byte(strconv.Itoa(cur+1)), 0o644); err != nil {
		return 0, fmt.Errorf("не удалось сохранить счётчик %s: %w", c.path, err)
	}
	return cur, nil
}

// Peek возвращает текущее значение без инкремента.
func (c *SequenceCounter) Peek() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readLocked()
}
