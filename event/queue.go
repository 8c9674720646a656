package event

import (
	"context"
	"errors"
	"sync"
)

// ErrEmpty 非阻塞获取时队列为空
var ErrEmpty = errors.New("event queue empty")

// Queue 先进先出事件队列。
// 除收发外还跟踪未完成事件数：Put 计一件，消费方处理完调 Done，
// Join 阻塞到所有已入队事件处理完毕（用于回测结束时的排空）。
type Queue struct {
	ch chan Event

	mu         sync.Mutex
	cond       *sync.Cond
	unfinished int
}

// NewQueue 创建事件队列
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1024
	}
	q := &Queue{ch: make(chan Event, capacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put 入队，队列满时阻塞
func (q *Queue) Put(e Event) {
	q.mu.Lock()
	q.unfinished++
	q.mu.Unlock()
	q.ch <- e
}

// Get 出队，队列空时阻塞；ctx取消时返回false
func (q *Queue) Get(ctx context.Context) (Event, bool) {
	select {
	case <-ctx.Done():
		return Event{}, false
	case e := <-q.ch:
		return e, true
	}
}

// TryGet 非阻塞出队
func (q *Queue) TryGet() (Event, error) {
	select {
	case e := <-q.ch:
		return e, nil
	default:
		return Event{}, ErrEmpty
	}
}

// Done 标记一件事件处理完毕
func (q *Queue) Done() {
	q.mu.Lock()
	q.unfinished--
	if q.unfinished <= 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

// Join 阻塞到所有已入队事件处理完毕
func (q *Queue) Join() {
	q.mu.Lock()
	for q.unfinished > 0 {
		q.cond.Wait()
	}
	q.mu.Unlock()
}

// Len 当前积压事件数
func (q *Queue) Len() int {
	return len(q.ch)
}
