package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"telegram-anon-bot/internal/domain"
)

// PendingStore — потокобезопасное in-memory хранилище заявок, ожидающих
// решения модератора. Ключ — одноразовый токен заявки: после Take токен
// мертв и повторное решение по нему невозможно.
type PendingStore struct {
	mu   sync.RWMutex
	subs map[string]*domain.Submission
}

// NewPendingStore создает новый экземпляр PendingStore.
func NewPendingStore() *PendingStore {
	return &PendingStore{
		subs: make(map[string]*domain.Submission),
	}
}

// Put сохраняет заявку под ее токеном.
func (s *PendingStore) Put(sub *domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Token] = sub
}

// Take атомарно извлекает и удаляет заявку по токену. Второй Take с тем же
// токеном вернет false: на этом держится идемпотентность модерации.
func (s *PendingStore) Take(token string) (*domain.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[token]
	if !ok {
		return nil, false
	}
	delete(s.subs, token)
	return sub, true
}

// Len возвращает количество заявок в очереди.
func (s *PendingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// TrimOldest удаляет самые старые заявки, пока размер не опустится до max.
// Возвращает количество вытесненных записей.
func (s *PendingStore) TrimOldest(max int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for len(s.subs) > max {
		var oldestToken string
		var oldestAt time.Time
		for token, sub := range s.subs {
			if oldestToken == "" || sub.CreatedAt.Before(oldestAt) {
				oldestToken = token
				oldestAt = sub.CreatedAt
			}
		}
		delete(s.subs, oldestToken)
		evicted++
	}
	return evicted
}

// StartCleanupTicker запускает фоновую периодическую чистку: защита от утечки
// памяти на заявках, по которым модератор так и не принял решение.
func (s *PendingStore) StartCleanupTicker(ctx context.Context, interval time.Duration, max int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := s.TrimOldest(max); evicted > 0 {
					logger.Warn("вытеснены необработанные заявки",
						slog.Int("evicted", evicted), slog.Int("cap", max))
				}
			}
		}
	}()
}
