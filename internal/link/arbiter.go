package link

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
)

// StatusSink 状态帧旁路记录（飞行记录仪）。实现方不得阻塞。
type StatusSink interface {
	RecordStatus(code uint16, info string)
}

// Arbiter 下行发送请求入口。队列满时重试三次、每次最多等 500ms，
// 仍失败则向上报告，由调用方决定是否致命。
type Arbiter struct {
	Queue *TxQueue

	// 重试节奏，测试可缩短
	PushTimeout time.Duration
	RetryDelay  time.Duration
	TextDelay   time.Duration

	Metrics *metrics.AppMetrics
	Sink    StatusSink
	Log     *zap.Logger
}

// NewArbiter 以默认节奏创建仲裁器
func NewArbiter(q *TxQueue, m *metrics.AppMetrics, log *zap.Logger) *Arbiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Arbiter{
		Queue:       q,
		PushTimeout: 500 * time.Millisecond,
		RetryDelay:  50 * time.Millisecond,
		TextDelay:   100 * time.Millisecond,
		Metrics:     m,
		Log:         log,
	}
}

// Send 提交一段出站数据。urgent 插队，仅限深层故障路径的告警帧。
func (a *Arbiter) Send(data []byte, binary, urgent bool) bool {
	if len(data) > MaxFrameSize {
		return false
	}

	pkt := &RadioPacket{Data: append([]byte(nil), data...), Binary: binary}

	for i := 0; i < 3; i++ {
		if i > 0 && a.Metrics != nil {
			a.Metrics.TxQueueRetry.Inc()
		}
		if a.Queue.Push(pkt, urgent, a.PushTimeout) {
			if a.Metrics != nil {
				a.Metrics.TxQueueDepth.Set(float64(a.Queue.Len()))
			}
			return true
		}
		// 留出时间让数据链路任务清空队列
		time.Sleep(a.RetryDelay)
	}

	if a.Metrics != nil {
		a.Metrics.TxQueueDrop.Inc()
	}
	a.Log.Warn("tx queue full, submission abandoned",
		zap.Int("len", len(data)), zap.Bool("binary", binary))
	return false
}

// SendText 以文本帧下行：内容包在 `** ` 与 ` **` 之间，追加到队尾。
// 多帧应答依赖提交顺序即播出顺序；插队只留给 Send 的 urgent 路径。
func (a *Arbiter) SendText(format string, args ...any) bool {
	content := fmt.Sprintf(format, args...)
	framed := "** " + content + " **"
	if len(framed) > MaxFrameSize {
		framed = framed[:MaxFrameSize]
	}

	for i := 0; i < 3; i++ {
		if a.Send([]byte(framed), false, false) {
			return true
		}
		time.Sleep(a.TextDelay)
	}
	return false
}

// SendStatus 下行一个无负载状态码
func (a *Arbiter) SendStatus(code statuscode.Code) {
	a.sendStatusInfo(code, "")
}

// SendStatusInt 下行带数字负载的状态码
func (a *Arbiter) SendStatusInt(code statuscode.Code, payload int) {
	a.sendStatusInfo(code, fmt.Sprintf("%d", payload))
}

// SendStatusBool 下行带布尔负载的状态码
func (a *Arbiter) SendStatusBool(code statuscode.Code, payload bool) {
	if payload {
		a.sendStatusInfo(code, "1")
	} else {
		a.sendStatusInfo(code, "0")
	}
}

// SendStatusStr 下行带字符串负载的状态码
func (a *Arbiter) SendStatusStr(code statuscode.Code, payload string) {
	a.sendStatusInfo(code, payload)
}

func (a *Arbiter) sendStatusInfo(code statuscode.Code, info string) {
	if a.Sink != nil {
		a.Sink.RecordStatus(uint16(code), info)
	}
	a.SendText("%s", statuscode.Format(code, info))
}
