package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/pkg/logger"
)

const defaultSubjectPrefix = "feedmix.changes"

// Connect 连接 NATS，断线重连时记日志
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("feedmix"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NatsBus 帖子变更发到 <prefix>.posts，点赞变更发到 <prefix>.likes.<user_id>
type NatsBus struct {
	conn   *nats.Conn
	prefix string
}

func NewNatsBus(conn *nats.Conn) *NatsBus {
	return &NatsBus{conn: conn, prefix: defaultSubjectPrefix}
}

func (b *NatsBus) subject(c Change) (string, error) {
	switch c.Table {
	case TablePosts:
		return b.prefix + "." + TablePosts, nil
	case TableLikes:
		if c.UserID == "" {
			return "", errors.New("realtime: like change without user id")
		}
		return b.prefix + "." + TableLikes + "." + c.UserID, nil
	default:
		return "", fmt.Errorf("realtime: unknown table %q", c.Table)
	}
}

func (b *NatsBus) Publish(_ context.Context, c Change) error {
	subject, err := b.subject(c)
	if err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (b *NatsBus) Subscribe(userID string, h Handler) (Subscription, error) {
	handler := func(msg *nats.Msg) {
		var c Change
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			logger.Warn("drop undecodable change", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		h(c)
	}
	posts, err := b.conn.Subscribe(b.prefix+"."+TablePosts, handler)
	if err != nil {
		return nil, fmt.Errorf("nats subscribe posts: %w", err)
	}
	likes, err := b.conn.Subscribe(b.prefix+"."+TableLikes+"."+userID, handler)
	if err != nil {
		_ = posts.Unsubscribe()
		return nil, fmt.Errorf("nats subscribe likes: %w", err)
	}
	return natsSubscription{subs: []*nats.Subscription{posts, likes}}, nil
}

type natsSubscription struct {
	subs []*nats.Subscription
}

func (s natsSubscription) Unsubscribe() error {
	var errs []error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
