package realtime

import "context"

type Handler func(Change)

type Subscription interface {
	Unsubscribe() error
}

// Bus 帖子变更广播给所有订阅者，点赞变更只投递给点赞用户本人
type Bus interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(userID string, h Handler) (Subscription, error)
}
