// Package watchdog 软件看门狗：每个任务注册一个句柄并在循环内周期喂狗，
// 任一任务超时未喂即触发受控重启。这是系统唯一的任务取消机制，
// 不提供逐任务的优雅停止或恢复。
package watchdog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/metrics"
)

// DefaultTimeout 默认喂狗超时
const DefaultTimeout = 120 * time.Second

// Handle 单个任务的喂狗句柄
type Handle struct {
	name string
	mu   sync.Mutex
	last time.Time

	metrics *metrics.AppMetrics
}

// Kick 喂狗
func (h *Handle) Kick() {
	h.mu.Lock()
	h.last = time.Now()
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WatchdogKicks.WithLabelValues(h.name).Inc()
	}
}

// Name 任务名
func (h *Handle) Name() string { return h.name }

func (h *Handle) age(now time.Time) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return now.Sub(h.last)
}

// Supervisor 看门狗监督器
type Supervisor struct {
	Timeout time.Duration
	// OnStall 某任务停摆时回调一次，随后整机重启
	OnStall func(task string)

	Log     *zap.Logger
	Metrics *metrics.AppMetrics

	mu      sync.Mutex
	handles []*Handle

	checkInterval time.Duration
	stalled       bool
}

// NewSupervisor 创建监督器；timeout <= 0 时取默认值
func NewSupervisor(timeout time.Duration, onStall func(task string), log *zap.Logger, m *metrics.AppMetrics) *Supervisor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		Timeout:       timeout,
		OnStall:       onStall,
		Log:           log,
		Metrics:       m,
		checkInterval: time.Second,
	}
}

// Register 注册一个被监控任务，返回喂狗句柄。句柄立即视为已喂。
func (s *Supervisor) Register(name string) *Handle {
	h := &Handle{name: name, last: time.Now(), metrics: s.Metrics}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
	return h
}

// Run 周期巡检所有句柄，发现停摆任务即触发 OnStall 并返回
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if task, ok := s.check(time.Now()); ok {
				s.Log.Error("watchdog: task stalled, forcing restart", zap.String("task", task))
				if s.OnStall != nil {
					s.OnStall(task)
				}
				return
			}
		}
	}
}

func (s *Supervisor) check(now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stalled {
		return "", false
	}
	for _, h := range s.handles {
		if h.age(now) > s.Timeout {
			s.stalled = true
			return h.name, true
		}
	}
	return "", false
}
