package redis

import (
	"context"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"
)

// OperatorStore implements ports.OperatorRepository as a Redis set.
type OperatorStore struct {
	client *goredis.Client
	key    string
}

// NewOperatorStore creates an operator set stored under "till:operators".
func NewOperatorStore(client *goredis.Client) *OperatorStore {
	return &OperatorStore{client: client, key: keyPrefix + "operators"}
}

func (s *OperatorStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis operators list: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *OperatorStore) Add(ctx context.Context, id string) (bool, error) {
	n, err := s.client.SAdd(ctx, s.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis operators add: %w", err)
	}
	return n == 1, nil
}

func (s *OperatorStore) Remove(ctx context.Context, id string) (bool, error) {
	n, err := s.client.SRem(ctx, s.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis operators remove: %w", err)
	}
	return n == 1, nil
}
