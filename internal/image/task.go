// Package image 图像任务：整幅拍摄、编码分包与队列排空收尾。
// 编码期间持有摄像头硬件锁；传输进行标志是与指令任务忙检查、
// 数据链路中继闸门的唯一耦合点。
package image

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/alert"
	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/ssdv"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// Task 图像任务
type Task struct {
	Callsign string

	Store   *state.Store
	Camera  device.Camera
	Encoder ssdv.Encoder
	Arbiter *link.Arbiter
	Queue   *link.TxQueue
	Power   device.PowerGovernor
	Alert   *alert.Beeper

	Watchdog *watchdog.Handle
	Metrics  *metrics.AppMetrics
	Log      *zap.Logger

	DisabledNap time.Duration // 功能关闭时的休眠
	RetryDelay  time.Duration // 单包提交重试间隔
	PacketYield time.Duration // 包间让出
	DrainPoll   time.Duration // 队列排空轮询间隔
	SettleDelay time.Duration // 串口硬件缓冲沉降时间

	imageID uint8
}

// New 创建图像任务
func New(callsign string, st *state.Store, cam device.Camera, enc ssdv.Encoder, arb *link.Arbiter, q *link.TxQueue, power device.PowerGovernor, beeper *alert.Beeper, wd *watchdog.Handle, m *metrics.AppMetrics, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	return &Task{
		Callsign:    callsign,
		Store:       st,
		Camera:      cam,
		Encoder:     enc,
		Arbiter:     arb,
		Queue:       q,
		Power:       power,
		Alert:       beeper,
		Watchdog:    wd,
		Metrics:     m,
		Log:         log,
		DisabledNap: 5 * time.Second,
		RetryDelay:  100 * time.Millisecond,
		PacketYield: 20 * time.Millisecond,
		DrainPoll:   200 * time.Millisecond,
		SettleDelay: 500 * time.Millisecond,
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

		if !t.Store.Status().SSDVEnabled {
			if !sleepCtx(ctx, t.DisabledNap) {
				return
			}
			continue
		}

		t.Store.SetStatus(state.FieldSSDVTransmitting, true)
		t.Arbiter.SendStatusInt(statuscode.SSDVEncodeStart, int(t.imageID))

		// 拍摄与编码全程持有摄像头硬件锁
		t.Store.LockCamera()
		frame, err := t.Camera.Capture()
		if err != nil || frame == nil || len(frame.Data) == 0 {
			t.Log.Error("image capture failed", zap.Error(err))
			t.Arbiter.SendStatus(statuscode.CamCaptureFail)
			if frame != nil {
				frame.Release()
			}
			t.Store.UnlockCamera()
			t.Alert.SignalFault()
			t.Store.SetStatus(state.FieldSSDVTransmitting, false)
			continue
		}

		cfg := t.Store.Config()
		t.encode(frame.Data, cfg)

		frame.Release()
		t.Store.UnlockCamera()

		// 等发送队列完全清空后再收尾
		for t.Queue.Len() > 0 {
			if !sleepCtx(ctx, t.DrainPoll) {
				return
			}
			if t.Watchdog != nil {
				t.Watchdog.Kick()
			}
		}

		// 给物理串口留出发完末包的时间：9600 波特下一个 256 字节包约 267ms
		if !sleepCtx(ctx, t.SettleDelay) {
			return
		}

		t.Arbiter.SendStatusInt(statuscode.SSDVEncodeEnd, int(t.imageID-1))
		t.Store.SetStatus(state.FieldSSDVTransmitting, false)

		// 发送周期内降频节电，醒来恢复全速准备下一次拍摄
		t.Power.SetLow()
		cycle := time.Duration(t.Store.Config().SSDVCycleTimeSec) * time.Second
		ok := sleepCtx(ctx, cycle)
		t.Power.SetFull()
		if !ok {
			return
		}
	}
}

// ImageID 当前图像计数（测试用）
func (t *Task) ImageID() uint8 { return t.imageID }

// encode 驱动拉取式编码器：索要时投喂、产包即提交，直到 EOI 或出错
func (t *Task) encode(src []byte, cfg state.SystemConfig) {
	t.Encoder.Reset(ssdv.Params{
		Type:     cfg.SSDVPacketType,
		Callsign: t.Callsign,
		ImageID:  t.imageID,
		Quality:  cfg.SSDVEncodingQuality,
	})
	t.imageID++

	var pkt [ssdv.PacketSize]byte
	offset := 0

	for {
		if t.Watchdog != nil {
			t.Watchdog.Kick()
		}

		st := t.Encoder.NextPacket(pkt[:])
		for st == ssdv.StatusFeedMe {
			if offset < len(src) {
				end := offset + ssdv.FeedChunkSize
				if end > len(src) {
					end = len(src)
				}
				t.Encoder.Feed(src[offset:end])
				offset = end
			} else {
				// 源已尽，通知编码器收尾
				t.Encoder.Feed(nil)
			}
			st = t.Encoder.NextPacket(pkt[:])
		}

		if st == ssdv.StatusEOI {
			return
		}
		if st != ssdv.StatusOK {
			t.Arbiter.SendStatusInt(statuscode.SSDVEncodeError, int(st))
			return
		}

		t.submit(pkt[:])
		time.Sleep(t.PacketYield)
	}
}

// submit 单包提交：队列满时重试三次，放弃前通报缓冲区满。
// 丢单包不中止本幅图像，解码端按包序号容忍缺口。
func (t *Task) submit(pkt []byte) {
	for attempt := 0; attempt < 3; attempt++ {
		if t.Arbiter.Send(pkt, true, false) {
			if t.Metrics != nil {
				t.Metrics.ImagePackets.Inc()
			}
			return
		}
		time.Sleep(t.RetryDelay)
	}
	t.Arbiter.SendStatus(statuscode.SSDVTxBufferFull)
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
