// Package relay 业余无线电转发：把地面站上行的中继帧重新封帧下行。
// 带滚动窗口限流，防止链路被滥用挤占遥测与图传带宽。
package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// Task 中继任务
type Task struct {
	Inbound <-chan string

	Store   *state.Store
	Arbiter *link.Arbiter

	Watchdog *watchdog.Handle
	Metrics  *metrics.AppMetrics
	Log      *zap.Logger

	Window  time.Duration // 限流窗口长度
	Ceiling int           // 窗口内最大转发帧数

	DisabledNap time.Duration // 功能关闭时的休眠
	RecvTimeout time.Duration // 收帧有界等待

	count     int
	warned    bool
	windowEnd time.Time
}

// New 创建中继任务
func New(inbound <-chan string, st *state.Store, arb *link.Arbiter, wd *watchdog.Handle, m *metrics.AppMetrics, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	return &Task{
		Inbound:     inbound,
		Store:       st,
		Arbiter:     arb,
		Watchdog:    wd,
		Metrics:     m,
		Log:         log,
		Window:      2 * time.Minute,
		Ceiling:     80,
		DisabledNap: 2 * time.Second,
		RecvTimeout: time.Second,
	}
}

// Run 运行任务循环直到 ctx 取消
func (t *Task) Run(ctx context.Context) {
	t.windowEnd = time.Now().Add(t.Window)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t.Watchdog != nil {
			t.Watchdog.Kick()
		}

		if !t.Store.Status().RelayEnabled {
			if !sleepCtx(ctx, t.DisabledNap) {
				return
			}
			continue
		}

		// 窗口滚动：计数与告警闩锁一并复位
		if time.Now().After(t.windowEnd) {
			t.count = 0
			t.warned = false
			t.windowEnd = time.Now().Add(t.Window)
		}

		timer := time.NewTimer(t.RecvTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case payload := <-t.Inbound:
			timer.Stop()
			t.forward(payload)
		case <-timer.C:
			// 超时无帧，回去喂狗
		}
	}
}

// forward 转发一帧，或在窗口超限时丢弃（每窗口只告警一次）
func (t *Task) forward(payload string) {
	if t.count < t.Ceiling {
		t.Arbiter.SendText("##RELAY,%s", payload)
		t.count++
		if t.Metrics != nil {
			t.Metrics.RelayForward.Inc()
		}
		return
	}

	if t.Metrics != nil {
		t.Metrics.RelayDrop.Inc()
	}
	if !t.warned {
		t.Arbiter.SendStatus(statuscode.RelayRateLimited)
		t.warned = true
		t.Log.Warn("relay ceiling reached, dropping until window reset",
			zap.Int("ceiling", t.Ceiling))
	}
}

// sleepCtx 可取消休眠；ctx 取消时返回 false
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
