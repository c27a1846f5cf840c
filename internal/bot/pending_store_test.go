package bot

import (
	"fmt"
	"testing"
	"time"

	"telegram-anon-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingStore_PutTake(t *testing.T) {
	s := NewPendingStore()
	sub := &domain.Submission{Token: "tok-1", PostNumber: 1, CreatedAt: time.Now()}

	s.Put(sub)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Take("tok-1")
	require.True(t, ok)
	assert.Equal(t, sub, got)
	assert.Equal(t, 0, s.Len())

	// Токен одноразовый: повторный Take сообщает о промахе.
	_, ok = s.Take("tok-1")
	assert.False(t, ok)
}

func TestPendingStore_TakeUnknownToken(t *testing.T) {
	s := NewPendingStore()
	_, ok := s.Take("нет такого")
	assert.False(t, ok)
}

func TestPendingStore_TrimOldest(t *testing.T) {
	s := NewPendingStore()
	base := time.Now()
	for i := 0; i < 10; i++ {
		s.Put(&domain.Submission{
			Token:     fmt.Sprintf("tok-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	evicted := s.TrimOldest(4)
	assert.Equal(t, 6, evicted)
	assert.Equal(t, 4, s.Len())

	// Выжить должны самые свежие записи.
	for i := 6; i < 10; i++ {
		_, ok := s.Take(fmt.Sprintf("tok-%d", i))
		assert.True(t, ok, "tok-%d должен остаться", i)
	}
}

func TestPendingStore_TrimOldestUnderCap(t *testing.T) {
	s := NewPendingStore()
	s.Put(&domain.Submission{Token: "tok", CreatedAt: time.Now()})

	assert.Equal(t, 0, s.TrimOldest(5))
	assert.Equal(t, 1, s.Len())
}

func TestPublishedStore_PutTake(t *testing.T) {
	s := NewPublishedStore()
	post := &domain.PublishedPost{
		GroupToken: "group-1",
		Messages:   []domain.MessageRef{{ChatID: -100, MessageID: 1}},
	}

	s.Put(post)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Take("group-1")
	require.True(t, ok)
	assert.Equal(t, post, got)

	_, ok = s.Take("group-1")
	assert.False(t, ok)
}
