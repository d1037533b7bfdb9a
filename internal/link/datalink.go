package link

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// Port 数据链路串口。Read 须配置短超时：无数据时返回 n=0 而不是阻塞，
// 数据链路任务靠这一点保持循环有界。
type Port interface {
	io.ReadWriter
}

// Datalink 数据链路任务：唯一的串口持有者。
// 每个调度片：喂狗 → 机会性取一个发送包写串口 → 排空当前可读入站字节并
// 组帧分发（@@ 指令、## 中继）→ 无事可做则短暂让出。
type Datalink struct {
	Port  Port
	Queue *TxQueue
	Store *state.Store

	CmdQueue   chan string
	RelayQueue chan string

	// Pacer 把串口写入限速到无线电波特率，防止灌爆硬件缓冲；可为 nil
	Pacer *rate.Limiter

	PopTimeout   time.Duration // 取发送包的有界等待
	IdleDelay    time.Duration // 空转让出时长
	RouteTimeout time.Duration // 入站帧入队的有界等待

	Watchdog *watchdog.Handle
	Metrics  *metrics.AppMetrics
	Log      *zap.Logger

	frame []byte // 组帧缓冲，跨调度片保留
}

// NewDatalink 创建数据链路任务与两条入站队列
func NewDatalink(port Port, q *TxQueue, st *state.Store, wd *watchdog.Handle, m *metrics.AppMetrics, log *zap.Logger) *Datalink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Datalink{
		Port:         port,
		Queue:        q,
		Store:        st,
		CmdQueue:     make(chan string, 10),
		RelayQueue:   make(chan string, 10),
		PopTimeout:   10 * time.Millisecond,
		IdleDelay:    10 * time.Millisecond,
		RouteTimeout: 50 * time.Millisecond,
		Watchdog:     wd,
		Metrics:      m,
		Log:          log,
		frame:        make([]byte, 0, MaxFrameSize),
	}
}

// NewPacer 按波特率构造串口写入限速器（10 位传 1 字节）
func NewPacer(baud int) *rate.Limiter {
	if baud <= 0 {
		return nil
	}
	bytesPerSec := baud / 10
	return rate.NewLimiter(rate.Limit(bytesPerSec), MaxFrameSize)
}

// Run 运行任务循环直到 ctx 取消
func (d *Datalink) Run(ctx context.Context) {
	rbuf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if d.Watchdog != nil {
			d.Watchdog.Kick()
		}
		didWork := false

		// 优先处理发送
		if pkt, ok := d.Queue.Pop(d.PopTimeout); ok {
			didWork = true
			d.writePacket(ctx, pkt)
		}

		// 然后排空当前可读的入站字节
		n, err := d.Port.Read(rbuf)
		if n > 0 {
			didWork = true
			for _, c := range rbuf[:n] {
				d.feed(c)
			}
		}
		if err != nil && err != io.EOF {
			d.Log.Warn("serial read error", zap.Error(err))
		}

		if !didWork {
			time.Sleep(d.IdleDelay)
		}
	}
}

func (d *Datalink) writePacket(ctx context.Context, pkt *RadioPacket) {
	if d.Pacer != nil {
		_ = d.Pacer.WaitN(ctx, len(pkt.Data))
	}
	if _, err := d.Port.Write(pkt.Data); err != nil {
		d.Log.Warn("serial write error", zap.Error(err), zap.Int("len", len(pkt.Data)))
		return
	}
	if d.Metrics != nil {
		kind := "text"
		if pkt.Binary {
			kind = "binary"
		}
		d.Metrics.TxFrames.WithLabelValues(kind).Inc()
		d.Metrics.TxBytes.Add(float64(len(pkt.Data)))
		d.Metrics.TxQueueDepth.Set(float64(d.Queue.Len()))
	}
}

// feed 逐字节组帧：换行为帧尾；装满仍无帧尾则丢弃在建帧
func (d *Datalink) feed(c byte) {
	if c != '\n' {
		if len(d.frame) < MaxFrameSize-1 {
			d.frame = append(d.frame, c)
		} else {
			d.frame = d.frame[:0]
		}
		return
	}

	if len(d.frame) > 2 {
		d.route(string(d.frame))
	}
	d.frame = d.frame[:0]
}

// route 按前缀分类并转发，剥掉前缀
func (d *Datalink) route(frame string) {
	switch {
	case strings.HasPrefix(frame, CommandPrefix):
		d.countRx("command")
		d.enqueue(d.CmdQueue, frame[2:])

	case strings.HasPrefix(frame, RelayPrefix):
		// 中继开启且无图传进行时才转发；否则静默丢弃
		st := d.Store.Status()
		if st.RelayEnabled && !st.SSDVTransmitting {
			d.countRx("relay")
			d.enqueue(d.RelayQueue, frame[2:])
		} else {
			d.countRx("dropped")
		}

	default:
		d.countRx("dropped")
	}
}

func (d *Datalink) enqueue(ch chan string, payload string) {
	timer := time.NewTimer(d.RouteTimeout)
	defer timer.Stop()
	select {
	case ch <- payload:
	case <-timer.C:
		d.Log.Warn("inbound queue full, frame dropped", zap.Int("len", len(payload)))
	}
}

func (d *Datalink) countRx(class string) {
	if d.Metrics != nil {
		d.Metrics.RxFrames.WithLabelValues(class).Inc()
	}
}
