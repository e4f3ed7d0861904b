package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"boat_rental/internal/domain"
)

// Queue is a Redis list used as the parse job broker. Producers LPUSH,
// workers BRPOP, so jobs come out in enqueue order.
type Queue struct {
	c    *redis.Client
	name string
}

func NewQueue(c *redis.Client, name string) *Queue {
	if name == "" {
		name = "parse:queue"
	}
	return &Queue{c: c, name: name}
}

func (q *Queue) Enqueue(ctx context.Context, job domain.ParseJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.c.LPush(ctx, q.name, b).Err()
}

// Dequeue blocks up to a second waiting for a job. The second return is
// false when the queue stayed empty; callers loop on it.
func (q *Queue) Dequeue(ctx context.Context) (domain.ParseJob, bool, error) {
	res, err := q.c.BRPop(ctx, time.Second, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ParseJob{}, false, nil
	}
	if err != nil {
		return domain.ParseJob{}, false, err
	}
	// BRPOP returns [key, value]
	if len(res) < 2 {
		return domain.ParseJob{}, false, nil
	}
	var job domain.ParseJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return domain.ParseJob{}, false, err
	}
	return job, true, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.c.LLen(ctx, q.name).Result()
}
