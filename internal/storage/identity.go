// Package storage содержит файловые хранилища бота: реестр соответствия
// Telegram ID и внутренних номеров, персистентные счётчики и флаг приёма.
// Формат файлов строчный, одна запись на строку, чтобы данные можно было
// посмотреть и поправить руками.
package storage

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrNotFound возвращается, когда запись не найдена в хранилище.
var ErrNotFound = errors.New("запись не найдена")

// IdentityRegistry — персистентное двустороннее соответствие между
// Telegram ID пользователя и его внутренним номером (1, 2, 3...).
// Внутренние номера показываются администраторам вместо настоящих ID,
// поэтому их уникальность — ключевой инвариант реестра.
type IdentityRegistry struct {
	mu   sync.RWMutex
	path string
	ids  map[int64]int // map[telegramID]internalID
}

// OpenIdentityRegistry загружает реестр из файла и сразу выполняет проверку
// дубликатов, чтобы инвариант уникальности держался до первого чтения.
// Отсутствующий файл означает пустой реестр; нечитаемый или битый файл —
// ошибка, молча терять данные нельзя.
func OpenIdentityRegistry(path string) (*IdentityRegistry, error) {
	r := &IdentityRegistry{
		path: path,
		ids:  make(map[int64]int),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	if _, err := r.RepairDuplicates(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *IdentityRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл реестра %s: %w", r.path, err)
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tid, iid, err := parseIdentityLine(line)
		if err != nil {
			return fmt.Errorf("битая строка %d в файле %s: %w", i+1, r.path, err)
		}
		r.ids[tid] = iid
	}
	return nil
}

func parseIdentityLine(line string) (int64, int, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ожидался формат telegram_id:internal_id, получено %q", line)
	}
	tid, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("некорректный telegram id: %w", err)
	}
	iid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("некорректный внутренний id: %w", err)
	}
	return tid, iid, nil
}

// persistLocked перезаписывает файл целиком. Вызывается под мьютексом.
// Записи сортируются по внутреннему номеру, чтобы файл был детерминированным.
func (r *IdentityRegistry) persistLocked() error {
	type entry struct {
		tid int64
		iid int
	}
	entries := make([]entry, 0, len(r.ids))
	for tid, iid := range r.ids {
		entries = append(entries, entry{tid, iid})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].iid < entries[j].iid })

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d:%d\n", e.tid, e.iid)
	}
	if err := os.WriteFile(r.path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("не удалось сохранить реестр %s: %w", r.path, err)
	}
	return nil
}

// GetOrCreate возвращает внутренний номер пользователя, создавая запись при
// первом обращении. Новому пользователю назначается наименьший свободный
// положительный номер: такая политика устойчива к перенумерациям после
// RepairDuplicates и не оставляет дыр в последовательности.
func (r *IdentityRegistry) GetOrCreate(telegramID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if iid, ok := r.ids[telegramID]; ok {
		return iid, nil
	}

	used := make(map[int]bool, len(r.ids))
	for _, iid := range r.ids {
		used[iid] = true
	}
	next := 1
	for used[next] {
		next++
	}

	r.ids[telegramID] = next
	if err := r.persistLocked(); err != nil {
		delete(r.ids, telegramID)
		return 0, err
	}
	return next, nil
}

// LookupExternal находит Telegram ID по внутреннему номеру линейным проходом.
// Возвращает ErrNotFound, если номер никому не назначен.
func (r *IdentityRegistry) LookupExternal(internalID int) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for tid, iid := range r.ids {
		if iid == internalID {
			return tid, nil
		}
	}
	return 0, fmt.Errorf("внутренний id %d: %w", internalID, ErrNotFound)
}

// RepairDuplicates проверяет реестр на совпадающие внутренние номера.
// При обнаружении дубликата все записи перенумеровываются последовательно
// с единицы в порядке возрастания Telegram ID и файл перезаписывается.
// Возвращает true, если перенумерация была выполнена.
func (r *IdentityRegistry) RepairDuplicates() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]bool, len(r.ids))
	duplicate := false
	for _, iid := range r.ids {
		if seen[iid] {
			duplicate = true
			break
		}
		seen[iid] = true
	}
	if !duplicate {
		return false, nil
	}

	tids := make([]int64, 0, len(r.ids))
	for tid := range r.ids {
		tids = append(tids, tid)
	}
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })

	for i, tid := range tids {
		r.ids[tid] = i + 1
	}
	if err := r.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// All возвращает копию реестра для статистики и рассылок.
func (r *IdentityRegistry) All() map[int64]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]int, len(r.ids))
	for tid, iid := range r.ids {
		out[tid] = iid
	}
	return out
}

// Len возвращает количество известных пользователей.
func (r *IdentityRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}
