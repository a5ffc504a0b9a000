package store

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// StageRecord is the last known pipeline stage of one request.
type StageRecord struct {
    Stage    string            `json:"stage"`
    Message  string            `json:"message"`
    File     string            `json:"file,omitempty"`
    Start    *time.Time        `json:"start_time,omitempty"`
    Updated  time.Time         `json:"updated_time"`
    Metadata map[string]string `json:"metadata,omitempty"`
}

// RedisStages keeps stage records in Redis hashes that expire after ttl.
type RedisStages struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedisStages(client *redis.Client, ttl time.Duration) *RedisStages {
    if ttl <= 0 { ttl = 24 * time.Hour }
    return &RedisStages{client: client, keyNS: "vitanote:request", ttl: ttl}
}

func (s *RedisStages) key(requestID string) string { return fmt.Sprintf("%s:%s:stage", s.keyNS, requestID) }

// Set merges rec into the stored record and refreshes its expiry. A nil
// Start leaves the stored start time alone.
func (s *RedisStages) Set(ctx context.Context, requestID string, rec StageRecord) error {
    k := s.key(requestID)
    _, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
        p.HSet(ctx, k, encode(rec))
        p.Expire(ctx, k, s.ttl)
        return nil
    })
    return err
}

func (s *RedisStages) Get(ctx context.Context, requestID string) (StageRecord, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(requestID)).Result()
    if err != nil { return StageRecord{}, false, err }
    if len(res) == 0 { return StageRecord{}, false, nil }
    return decode(res), true, nil
}

func (s *RedisStages) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func encode(rec StageRecord) map[string]interface{} {
    updated := rec.Updated
    if updated.IsZero() { updated = time.Now() }
    m := map[string]interface{}{
        "stage":   rec.Stage,
        "message": rec.Message,
        "updated": updated.UTC().Format(time.RFC3339Nano),
    }
    if rec.File != "" { m["file"] = rec.File }
    if rec.Start != nil { m["start"] = rec.Start.UTC().Format(time.RFC3339Nano) }
    if len(rec.Metadata) > 0 {
        b, _ := json.Marshal(rec.Metadata)
        m["metadata"] = string(b)
    }
    return m
}

func decode(res map[string]string) StageRecord {
    rec := StageRecord{Stage: res["stage"], Message: res["message"], File: res["file"]}
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { rec.Start = &t }
    }
    if v := res["updated"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { rec.Updated = t }
    }
    if v := res["metadata"]; v != "" {
        // ignore malformed metadata; the stage itself is still useful
        _ = json.Unmarshal([]byte(v), &rec.Metadata)
    }
    return rec
}
