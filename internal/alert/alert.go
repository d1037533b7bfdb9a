// Package alert 蜂鸣器声学通报与初始化故障标记。
package alert

import (
	"sync/atomic"
	"time"

	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/state"
)

// Beeper 声学信号发生器。故障信号同时落下初始化失败标记，
// 由启动流程末尾的就绪检查统一裁决。
type Beeper struct {
	Buzzer device.Buzzer
	Store  *state.Store

	// 鸣响节拍，测试可缩短
	ShortPulse time.Duration // 故障短鸣
	ReadyPulse time.Duration // 就绪提示音
	FaultHold  time.Duration // 重启前长鸣

	initFailed atomic.Bool
}

// New 创建声学信号发生器
func New(buzzer device.Buzzer, st *state.Store) *Beeper {
	return &Beeper{
		Buzzer:     buzzer,
		Store:      st,
		ShortPulse: 50 * time.Millisecond,
		ReadyPulse: 100 * time.Millisecond,
		FaultHold:  2 * time.Second,
	}
}

// SignalFault 三声短鸣（蜂鸣器启用时）并标记初始化失败
func (b *Beeper) SignalFault() {
	if b.Store.Status().BuzzerEnabled {
		for i := 0; i < 3; i++ {
			b.Buzzer.Set(true)
			time.Sleep(b.ShortPulse)
			b.Buzzer.Set(false)
			time.Sleep(b.ShortPulse)
		}
	}
	b.initFailed.Store(true)
}

// SignalReady 单声就绪提示音
func (b *Beeper) SignalReady() {
	b.Buzzer.Set(true)
	time.Sleep(b.ReadyPulse)
	b.Buzzer.Set(false)
}

// HoldFault 重启前的持续长鸣
func (b *Beeper) HoldFault() {
	b.Buzzer.Set(true)
	time.Sleep(b.FaultHold)
	b.Buzzer.Set(false)
}

// InitFailed 是否有初始化失败记录
func (b *Beeper) InitFailed() bool { return b.initFailed.Load() }
