package realtime

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedmix/internal/feed"
	"github.com/d60-Lab/feedmix/pkg/logger"
)

type ApplyFunc func(userID string, ev feed.Event)

type dispatchJob struct {
	userID string
	change Change
	enqAt  time.Time
}

// Dispatcher 在固定数量的 worker 上解码并应用变更（不占用总线的 goroutine）。
// 同一用户的任务总是落到同一个 worker，保证按到达顺序应用
type Dispatcher struct {
	apply     ApplyFunc
	shards    []chan dispatchJob
	metricsCh chan time.Duration
}

func NewDispatcher(apply ApplyFunc, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	shards := make([]chan dispatchJob, workers)
	for i := range shards {
		shards[i] = make(chan dispatchJob, queueSize)
	}
	return &Dispatcher{apply: apply, shards: shards, metricsCh: make(chan time.Duration, 65536)}
}

func (d *Dispatcher) shard(userID string) chan dispatchJob {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

// Start 每个分片启动一个 worker；返回的停止函数会先排空队列，或在 ctx 结束时返回
func (d *Dispatcher) Start() func(context.Context) error {
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for _, ch := range d.shards {
		wg.Add(1)
		go func(ch chan dispatchJob) {
			defer wg.Done()
			for {
				select {
				case job := <-ch:
					d.handle(job)
				case <-stopCh:
					for {
						select {
						case job := <-ch:
							d.handle(job)
						default:
							return
						}
					}
				}
			}
		}(ch)
	}
	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) handle(job dispatchJob) {
	ev, err := Decode(job.change)
	if err != nil {
		logger.Warn("drop malformed change",
			zap.String("user", job.userID),
			zap.String("table", job.change.Table),
			zap.Error(err))
		return
	}
	d.apply(job.userID, ev)
	select {
	case d.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 入队；队列满时丢弃并告警，下次刷新会对齐
func (d *Dispatcher) Enqueue(userID string, c Change) bool {
	select {
	case d.shard(userID) <- dispatchJob{userID: userID, change: c, enqAt: time.Now()}:
		return true
	default:
		logger.Warn("dispatcher queue full, drop change",
			zap.String("user", userID),
			zap.String("table", c.Table),
			zap.String("kind", string(c.Kind)))
		return false
	}
}

// Handler 返回把变更投递给 userID 的总线回调
func (d *Dispatcher) Handler(userID string) Handler {
	return func(c Change) { d.Enqueue(userID, c) }
}

// Metrics 返回从入队到应用完成的耗时（每处理一条发送一次）
func (d *Dispatcher) Metrics() <-chan time.Duration { return d.metricsCh }

// QueueLen 返回所有分片的排队总数（采样值）
func (d *Dispatcher) QueueLen() int {
	n := 0
	for _, ch := range d.shards {
		n += len(ch)
	}
	return n
}
