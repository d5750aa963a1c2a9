// Package jobxredis is the Redis-backed jobx.Queue: ready queues are Redis
// lists, delayed jobs live in a per-queue sorted set keyed by execution
// time, and job bodies are plain JSON blobs under a per-job key. This
// mirrors the rate limiter and blacklist in internal/gate and
// internal/admin — Redis is the one place this service keeps ephemeral
// shared state (§9).
package jobxredis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/giro-sh/license-server/internal/jobx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func queueKey(name string) string     { return fmt.Sprintf("jobx:queue:%s", name) }
func scheduledKey(name string) string { return fmt.Sprintf("jobx:scheduled:%s", name) }
func jobKey(id string) string         { return fmt.Sprintf("jobx:job:%s", id) }

var registry = errx.NewRegistry("JOBX_REDIS")

var (
	CodeEnqueue   = registry.Register("ENQUEUE", errx.TypeExternal, 500, "redis enqueue failed")
	CodeDequeue   = registry.Register("DEQUEUE", errx.TypeExternal, 500, "redis dequeue failed")
	CodeGetJob    = registry.Register("GET_JOB", errx.TypeExternal, 500, "redis get job failed")
	CodeComplete  = registry.Register("COMPLETE", errx.TypeExternal, 500, "redis complete failed")
	CodeFail      = registry.Register("FAIL", errx.TypeExternal, 500, "redis fail failed")
	CodeRetry     = registry.Register("RETRY", errx.TypeExternal, 500, "redis retry failed")
	CodePromote   = registry.Register("PROMOTE", errx.TypeExternal, 500, "redis promote failed")
	CodeNotFound  = registry.Register("NOT_FOUND", errx.TypeNotFound, 404, "job not found in redis")
	CodeMarshal   = registry.Register("MARSHAL", errx.TypeInternal, 500, "failed to marshal job data")
	CodeUnmarshal = registry.Register("UNMARSHAL", errx.TypeInternal, 500, "failed to unmarshal job data")
)

func (q *RedisQueue) Enqueue(ctx context.Context, job jobx.Job) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	info := jobx.JobInfo{
		ID: id, Type: job.Type, Queue: job.Queue, Payload: job.Payload,
		Status: jobx.JobStatusPending, MaxRetries: job.MaxRetries,
		CreatedAt: now, UpdatedAt: now,
	}

	data, err := json.Marshal(info)
	if err != nil {
		return "", errx.Wrap(err, "failed to marshal job", errx.TypeInternal)
	}

	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(id), data, 0)
	pipe.LPush(ctx, queueKey(job.Queue), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", errx.Wrap(err, "failed to enqueue job", errx.TypeExternal)
	}
	return id, nil
}

func (q *RedisQueue) EnqueueDelayed(ctx context.Context, job jobx.Job, delay time.Duration) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	info := jobx.JobInfo{
		ID: id, Type: job.Type, Queue: job.Queue, Payload: job.Payload,
		Status: jobx.JobStatusPending, MaxRetries: job.MaxRetries,
		CreatedAt: now, UpdatedAt: now,
	}

	data, err := json.Marshal(info)
	if err != nil {
		return "", errx.Wrap(err, "failed to marshal job", errx.TypeInternal)
	}

	score := float64(now.Add(delay).Unix())
	pipe := q.rdb.Pipeline()
	pipe.Set(ctx, jobKey(id), data, 0)
	pipe.ZAdd(ctx, scheduledKey(job.Queue), redis.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", errx.Wrap(err, "failed to enqueue delayed job", errx.TypeExternal)
	}
	return id, nil
}

func (q *RedisQueue) GetJob(ctx context.Context, jobID string) (*jobx.JobInfo, error) {
	data, err := q.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, registry.New(CodeNotFound)
		}
		return nil, errx.Wrap(err, "failed to get job", errx.TypeExternal)
	}

	var info jobx.JobInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, errx.Wrap(err, "failed to unmarshal job", errx.TypeInternal)
	}
	return &info, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, queues []string, timeout time.Duration) (*jobx.JobInfo, error) {
	keys := make([]string, len(queues))
	for i, name := range queues {
		keys[i] = queueKey(name)
	}

	result, err := q.rdb.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if err == redis.Nil || ctx.Err() != nil {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to dequeue job", errx.TypeExternal)
	}

	jobID := result[1]
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	info.Status = jobx.JobStatusActive
	info.Attempts++
	info.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(info)
	if err != nil {
		return nil, errx.Wrap(err, "failed to marshal job", errx.TypeInternal)
	}
	if err := q.rdb.Set(ctx, jobKey(jobID), data, 0).Err(); err != nil {
		return nil, errx.Wrap(err, "failed to persist dequeued job", errx.TypeExternal)
	}
	return info, nil
}

func (q *RedisQueue) Complete(ctx context.Context, jobID string, result []byte) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	info.Status = jobx.JobStatusCompleted
	info.Result = result
	info.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(info)
	if err != nil {
		return errx.Wrap(err, "failed to marshal job", errx.TypeInternal)
	}
	if err := q.rdb.Set(ctx, jobKey(jobID), data, 0).Err(); err != nil {
		return errx.Wrap(err, "failed to complete job", errx.TypeExternal)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, jobID string, errMsg string) (bool, error) {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}

	shouldRetry := info.Attempts <= info.MaxRetries
	if shouldRetry {
		info.Status = jobx.JobStatusRetrying
	} else {
		info.Status = jobx.JobStatusFailed
	}
	info.Error = errMsg
	info.UpdatedAt = time.Now().UTC()

	data, mErr := json.Marshal(info)
	if mErr != nil {
		return false, errx.Wrap(mErr, "failed to marshal job", errx.TypeInternal)
	}
	if err := q.rdb.Set(ctx, jobKey(jobID), data, 0).Err(); err != nil {
		return false, errx.Wrap(err, "failed to mark job failed", errx.TypeExternal)
	}
	return shouldRetry, nil
}

func (q *RedisQueue) Retry(ctx context.Context, jobID string, delay time.Duration) error {
	info, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	score := float64(time.Now().UTC().Add(delay).Unix())
	if err := q.rdb.ZAdd(ctx, scheduledKey(info.Queue), redis.Z{Score: score, Member: jobID}).Err(); err != nil {
		return errx.Wrap(err, "failed to schedule retry", errx.TypeExternal)
	}
	return nil
}

// promoteScript atomically moves due jobs from the scheduled sorted set
// into the ready list so two schedulers racing never double-promote.
var promoteScript = redis.NewScript(`
local scheduled_key = KEYS[1]
local queue_key = KEYS[2]
local now = tonumber(ARGV[1])
local ids = redis.call('ZRANGEBYSCORE', scheduled_key, '-inf', now)
if #ids > 0 then
    for _, id in ipairs(ids) do
        redis.call('LPUSH', queue_key, id)
    end
    redis.call('ZREMRANGEBYSCORE', scheduled_key, '-inf', now)
end
return #ids
`)

func (q *RedisQueue) PromoteScheduled(ctx context.Context, queues []string) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	for _, name := range queues {
		err := promoteScript.Run(ctx, q.rdb, []string{scheduledKey(name), queueKey(name)}, now).Err()
		if err != nil && err != redis.Nil {
			return errx.Wrap(err, "failed to promote scheduled jobs", errx.TypeExternal)
		}
	}
	return nil
}
