// Package telemetry 周期采样传感器并下行类 UKHAS 遥测帧。
// 周期按端到端墙钟计算：GPS 等待与传感器读取都消耗周期本身，
// 不做漂移补偿。
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// Sink 遥测帧旁路记录（飞行记录仪）
type Sink interface {
	RecordTelemetry(sentence string)
}

// Task 遥测任务
type Task struct {
	Callsign string
	Debug    bool // 开发模式：不依赖 GPS 构帧

	GPS         device.GPS
	Battery     device.BatteryADC
	Thermometer device.ChipThermometer

	Arbiter *link.Arbiter
	Sink    Sink

	Watchdog *watchdog.Handle
	Metrics  *metrics.AppMetrics
	Log      *zap.Logger

	Period        time.Duration // 目标周期（端到端）
	GPSRetryDelay time.Duration // GPS 重试间隔
	SampleDelay   time.Duration // ADC 采样间隔
	SettleDelay   time.Duration // 温度传感器稳定时间
	ReadDelay     time.Duration // 温度采样间隔

	counter uint16
}

// New 创建遥测任务
func New(callsign string, debug bool, gps device.GPS, battery device.BatteryADC, thermo device.ChipThermometer, arb *link.Arbiter, wd *watchdog.Handle, m *metrics.AppMetrics, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	return &Task{
		Callsign:      callsign,
		Debug:         debug,
		GPS:           gps,
		Battery:       battery,
		Thermometer:   thermo,
		Arbiter:       arb,
		Watchdog:      wd,
		Metrics:       m,
		Log:           log,
		Period:        20 * time.Second,
		GPSRetryDelay: time.Second,
		SampleDelay:   5 * time.Millisecond,
		SettleDelay:   50 * time.Millisecond,
		ReadDelay:     20 * time.Millisecond,
	}
}

// Run 运行任务循环直到 ctx 取消
func (t *Task) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t.Watchdog != nil {
			t.Watchdog.Kick()
		}
		cycleStart := time.Now()

		// 最多三轮排空 GPS 输入，有新鲜定位即提前结束
		validity := byte('V')
		for retries := 0; retries < 3; retries++ {
			t.GPS.Drain()
			if t.GPS.Updated() {
				validity = 'A'
				break
			}
			if !sleepCtx(ctx, t.GPSRetryDelay) {
				return
			}
		}

		if t.Watchdog != nil {
			t.Watchdog.Kick()
		}

		// 无论定位结果如何都构帧下行
		sentence := t.BuildSentence(validity)
		if t.Arbiter.SendText("%s", sentence) {
			if t.Metrics != nil {
				t.Metrics.TelemetrySent.Inc()
			}
		}
		if t.Sink != nil {
			t.Sink.RecordTelemetry(sentence)
		}

		// 周期按墙钟端到端计：已消耗的时间从休眠里扣除
		remain := t.Period - time.Since(cycleStart)
		if remain > 0 {
			if !sleepCtx(ctx, remain) {
				return
			}
		}
	}
}

// BuildSentence 构建类 UKHAS 遥测帧并自增帧计数。
// $$CALLSIGN,counter,time,lat,lon,alt,speed,sats,heading,temp,volt,validity
func (t *Task) BuildSentence(validity byte) string {
	chipTemp := t.chipTemperature()
	battVolt := t.batteryVoltage()

	defer func() { t.counter++ }()

	if t.Debug {
		return fmt.Sprintf("$$%s,%d,DEBUG_MODE,0.000000,0.000000,0.00,0.00,0,0.00,%.2f,%.2f,%c",
			t.Callsign, t.counter, chipTemp, battVolt, validity)
	}

	r := t.GPS.Read()
	timestamp := r.Time.UTC().Format("2006-01-02T15:04:05Z")

	return fmt.Sprintf("$$%s,%d,%s,%.6f,%.6f,%.2f,%.2f,%d,%.2f,%.2f,%.2f,%c",
		t.Callsign,
		t.counter,
		timestamp,
		r.Latitude,
		r.Longitude,
		r.AltitudeM,
		r.SpeedKmh,
		r.Satellites,
		r.HeadingDeg,
		chipTemp,
		battVolt,
		validity,
	)
}

// Counter 当前帧计数（测试用）
func (t *Task) Counter() uint16 { return t.counter }

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
