package memory

import (
	"time"

	"career-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type SendResultRepository struct {
	cache *cache.Cache
}

// NewSendResultRepository keeps results for ttl and purges expired items every ttl.
func NewSendResultRepository(ttl time.Duration) contract.SendResultRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SendResultRepository{
		cache: cache.New(ttl, ttl),
	}
}

func sendResultKey(userId uuid.UUID, clientRequestId string) string {
	return userId.String() + ":" + clientRequestId
}

func (r *SendResultRepository) Save(userId uuid.UUID, clientRequestId string, result *contract.SendResult) {
	r.cache.Set(sendResultKey(userId, clientRequestId), result, cache.DefaultExpiration)
}

func (r *SendResultRepository) Get(userId uuid.UUID, clientRequestId string) (*contract.SendResult, bool) {
	if x, found := r.cache.Get(sendResultKey(userId, clientRequestId)); found {
		return x.(*contract.SendResult), true
	}
	return nil, false
}
