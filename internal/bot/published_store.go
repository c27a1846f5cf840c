package bot

import (
	"sync"

	"telegram-anon-bot/internal/domain"
)

// PublishedStore — in-memory реестр опубликованных постов. По групповому
// токену хранится список сообщений, созданных в канале одной одобренной
// заявкой, чтобы администратор мог позже удалить пост целиком.
type PublishedStore struct {
	mu    sync.RWMutex
	posts map[string]*domain.PublishedPost
}

// NewPublishedStore создает новый экземпляр PublishedStore.
func NewPublishedStore() *PublishedStore {
	return &PublishedStore{
		posts: make(map[string]*domain.PublishedPost),
	}
}

// Put регистрирует опубликованный пост под его групповым токеном.
func (s *PublishedStore) Put(post *domain.PublishedPost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.GroupToken] = post
}

// Take атомарно извлекает и удаляет пост по групповому токену.
func (s *PublishedStore) Take(groupToken string) (*domain.PublishedPost, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[groupToken]
	if !ok {
		return nil, false
	}
	delete(s.posts, groupToken)
	return post, true
}

// Len возвращает количество зарегистрированных постов.
func (s *PublishedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
