// Package resultlog 将批量执行结果写入 Redis：
//
//	SET     batchinsert:result:<name>:state  <JSON>  EX <ttl>  最近一次结果，供轮询
//	PUBLISH batchinsert:result:<name>        <JSON>            事件通知，供订阅
package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushairer/batchinsert"
)

// KeyPrefix 所有键与频道的前缀
const KeyPrefix = "batchinsert:result:"

// Config Redis 执行日志配置
type Config struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Name     string        `yaml:"name"` // 日志名称，用于构造键
	TTL      time.Duration `yaml:"ttl"`  // 状态键过期时间，0 表示不过期
}

// Record 发布到 Redis 的结果
type Record struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"` // "success" | "failed"
	Strategy   string    `json:"strategy"`
	Rows       int       `json:"rows"`
	Statements int       `json:"statements"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      *string   `json:"error,omitempty"`
}

// RedisPublisher 实现 batchinsert.ResultSink
type RedisPublisher struct {
	client redis.UniversalClient
	name   string
	ttl    time.Duration
	owned  bool
}

var _ batchinsert.ResultSink = (*RedisPublisher)(nil)

// NewRedisPublisher 按配置创建客户端，Close 时一并关闭
func NewRedisPublisher(cfg Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	p := NewRedisPublisherWithClient(client, cfg.Name, cfg.TTL)
	p.owned = true
	return p
}

// NewRedisPublisherWithClient 复用已有客户端
func NewRedisPublisherWithClient(client redis.UniversalClient, name string, ttl time.Duration) *RedisPublisher {
	if name == "" {
		name = "default"
	}
	return &RedisPublisher{client: client, name: name, ttl: ttl}
}

// StateKey 状态键
func (p *RedisPublisher) StateKey() string { return KeyPrefix + p.name + ":state" }

// Channel 事件频道
func (p *RedisPublisher) Channel() string { return KeyPrefix + p.name }

// Publish 写入状态键并发布事件
func (p *RedisPublisher) Publish(ctx context.Context, result batchinsert.ExecutionResult) error {
	record := Record{
		Name:       p.name,
		Strategy:   result.Strategy,
		Rows:       result.Rows,
		Statements: result.Statements,
		StartedAt:  result.StartTime,
		FinishedAt: result.StartTime.Add(result.Duration),
		DurationMs: result.Duration.Milliseconds(),
		ErrorKind:  result.ErrorKind,
	}
	if result.Success {
		record.Status = "success"
	} else {
		record.Status = "failed"
		if result.Error != "" {
			msg := result.Error
			record.Error = &msg
		}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, p.StateKey(), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Last 读取最近一次结果；不存在时返回 redis.Nil
func (p *RedisPublisher) Last(ctx context.Context) (Record, error) {
	var record Record
	data, err := p.client.Get(ctx, p.StateKey()).Bytes()
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return record, nil
}

// Close 关闭自建的客户端
func (p *RedisPublisher) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}
