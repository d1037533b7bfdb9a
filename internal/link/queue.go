package link

import (
	"sync"
	"time"
)

// TxQueue 有界发送队列。普通包追加到队尾，紧急包插到队头——
// 这是整条链路上唯一的优先级逃生通道，只给深层故障路径的
// 告警/状态帧使用。Push/Pop 都是有界等待，不会无限阻塞。
type TxQueue struct {
	mu       sync.Mutex
	items    []*RadioPacket
	capacity int

	notEmpty chan struct{}
	notFull  chan struct{}
}

// DefaultTxQueueCapacity 默认发送队列深度
const DefaultTxQueueCapacity = 120

// NewTxQueue 创建发送队列；capacity <= 0 时取默认值
func NewTxQueue(capacity int) *TxQueue {
	if capacity <= 0 {
		capacity = DefaultTxQueueCapacity
	}
	return &TxQueue{
		capacity: capacity,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

// Push 入队；urgent 为 true 时插到队头。队列满则最多等待 timeout。
func (q *TxQueue) Push(p *RadioPacket, urgent bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) < q.capacity {
			if urgent {
				q.items = append([]*RadioPacket{p}, q.items...)
			} else {
				q.items = append(q.items, p)
			}
			q.mu.Unlock()
			signal(q.notEmpty)
			return true
		}
		q.mu.Unlock()

		remain := time.Until(deadline)
		if remain <= 0 {
			return false
		}
		timer := time.NewTimer(remain)
		select {
		case <-q.notFull:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Pop 出队；队列空则最多等待 timeout
func (q *TxQueue) Pop(timeout time.Duration) (*RadioPacket, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			p := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			signal(q.notFull)
			return p, true
		}
		q.mu.Unlock()

		remain := time.Until(deadline)
		if remain <= 0 {
			return nil, false
		}
		timer := time.NewTimer(remain)
		select {
		case <-q.notEmpty:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Len 当前队列深度
func (q *TxQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity 队列容量
func (q *TxQueue) Capacity() int { return q.capacity }

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
