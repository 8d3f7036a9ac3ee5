package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL curto: o dado autoritativo é sempre o banco; o cache só alivia a
// leitura de concurso no caminho quente de colocação de aposta.
const contestTTL = 15 * time.Second

type ContestCache struct{ R *redis.Client }

func New(r *redis.Client) *ContestCache { return &ContestCache{R: r} }

func keyContest(id string) string { return "contest:" + id }

const keyOpenContest = "contest:open"

func (c *ContestCache) Get(ctx context.Context, contestID string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyContest(contestID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *ContestCache) Set(ctx context.Context, contestID string, v any) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyContest(contestID), b, contestTTL).Err()
}

func (c *ContestCache) GetOpen(ctx context.Context, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyOpenContest).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *ContestCache) SetOpen(ctx context.Context, v any) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyOpenContest, b, contestTTL).Err()
}

// Invalidate derruba as chaves de um concurso. Chamado no encerramento, antes
// de carregar as apostas, para que nenhuma leitura sirva um concurso já
// fechado como aberto.
func (c *ContestCache) Invalidate(ctx context.Context, contestID string) error {
	return c.R.Del(ctx, keyContest(contestID), keyOpenContest).Err()
}
