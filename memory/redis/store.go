package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KamdynS/go-swarm/memory"
	rds "github.com/redis/go-redis/v9"
)

// Config configures a redis-backed conversation store.
type Config struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, cfg Config) (*rds.Client, error) {
	client := rds.NewClient(&rds.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// ConversationStore keeps each session in a redis list of JSON messages.
type ConversationStore struct {
	client      *rds.Client
	prefix      string
	ttl         time.Duration
	maxMessages int
}

func NewConversationStore(client *rds.Client, prefix string, ttl time.Duration, maxMessages int) *ConversationStore {
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl, maxMessages: maxMessages}
}

func (cs *ConversationStore) convKey(sessionID string) string {
	p := cs.prefix
	if p != "" {
		p += ":"
	}
	return fmt.Sprintf("%sconversation:%s", p, sessionID)
}

func (cs *ConversationStore) AppendMessages(ctx context.Context, sessionID string, msgs ...memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}

	key := cs.convKey(sessionID)
	_, err := cs.client.TxPipelined(ctx, func(p rds.Pipeliner) error {
		p.RPush(ctx, key, vals...)
		if cs.maxMessages > 0 {
			p.LTrim(ctx, key, int64(-cs.maxMessages), -1)
		}
		if cs.ttl > 0 {
			p.Expire(ctx, key, cs.ttl)
		}
		return nil
	})
	return err
}

func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	vals, err := cs.client.LRange(ctx, cs.convKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("decode message of session %s: %w", sessionID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	return cs.client.Del(ctx, cs.convKey(sessionID)).Err()
}

func (cs *ConversationStore) Sessions(ctx context.Context) ([]string, error) {
	prefix := cs.convKey("")
	var cursor uint64
	ids := []string{}
	for {
		ks, cur, err := cs.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range ks {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
		if cur == 0 {
			break
		}
		cursor = cur
	}
	sort.Strings(ids)
	return ids, nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
