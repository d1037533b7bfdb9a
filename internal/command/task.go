// Package command 消费上行指令帧：解析、校验、改写共享状态，
// 并在摄像头相关配置变更时触发硬件重配置与回滚。
package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/camera"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// RestartFunc 受控重启入口。生产实现退出进程交由服务管理器拉起。
type RestartFunc func()

// Task 指令解析任务
type Task struct {
	Inbound <-chan string

	Store   *state.Store
	Arbiter *link.Arbiter
	Camera  *camera.Controller
	Restart RestartFunc

	Watchdog *watchdog.Handle
	Metrics  *metrics.AppMetrics
	Log      *zap.Logger

	RecvTimeout time.Duration // 收帧有界等待；超时只是再喂一次狗
	RebootDelay time.Duration // REBOOT 通报后的缓冲时间
}

// New 创建指令任务
func New(inbound <-chan string, st *state.Store, arb *link.Arbiter, cam *camera.Controller, restart RestartFunc, wd *watchdog.Handle, m *metrics.AppMetrics, log *zap.Logger) *Task {
	if log == nil {
		log = zap.NewNop()
	}
	return &Task{
		Inbound:     inbound,
		Store:       st,
		Arbiter:     arb,
		Camera:      cam,
		Restart:     restart,
		Watchdog:    wd,
		Metrics:     m,
		Log:         log,
		RecvTimeout: time.Second,
		RebootDelay: time.Second,
	}
}

// Run 运行任务循环直到 ctx 取消
func (t *Task) Run(ctx context.Context) {
	for {
		if t.Watchdog != nil {
			t.Watchdog.Kick()
		}

		timer := time.NewTimer(t.RecvTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case raw := <-t.Inbound:
			timer.Stop()
			t.Process(raw)
		case <-timer.C:
			// 超时无帧，回去喂狗
		}
	}
}

// Process 解析并执行一条指令。格式：<VERB>,<TARGET>[,<VALUE>]
func (t *Task) Process(raw string) {
	parts := strings.SplitN(raw, ",", 3)
	verb := parts[0]
	var target, value string
	if len(parts) > 1 {
		target = parts[1]
	}
	if len(parts) > 2 {
		value = parts[2]
	}

	if verb == "" || target == "" {
		t.countVerb("invalid")
		t.Arbiter.SendStatus(statuscode.CmdNackFormatError)
		return
	}

	if verb == "GET" {
		t.countVerb(verb)
		t.handleGet(target)
		return
	}

	// 其余指令需要 VALUE 字段
	if value == "" {
		t.countVerb("invalid")
		t.Arbiter.SendStatus(statuscode.CmdNackNoValue)
		return
	}

	switch verb {
	case "CTL":
		t.countVerb(verb)
		t.handleCtl(target, value)
	case "SET":
		t.countVerb(verb)
		t.handleSet(target, value)
	default:
		t.countVerb("invalid")
		t.Arbiter.SendStatus(statuscode.CmdNackInvalidType)
	}
}

func (t *Task) countVerb(verb string) {
	if t.Metrics != nil {
		t.Metrics.Commands.WithLabelValues(verb).Inc()
	}
}

// handleGet 只读查询，逐字段以状态码应答
func (t *Task) handleGet(target string) {
	switch target {
	case "RELAY":
		st := t.Store.Status()
		t.Arbiter.SendStatusBool(statuscode.CmdAckGetRelayStatus, st.RelayEnabled)

	case "SSDV":
		st := t.Store.Status()
		cfg := t.Store.Config()
		t.Arbiter.SendStatusBool(statuscode.CmdAckGetSSDVStatus, st.SSDVEnabled)
		t.Arbiter.SendStatusInt(statuscode.CmdAckGetSSDVCycle, cfg.SSDVCycleTimeSec)
		t.Arbiter.SendStatusInt(statuscode.CmdAckGetSSDVType, int(cfg.SSDVPacketType))
		t.Arbiter.SendStatusInt(statuscode.CmdAckGetSSDVQuality, cfg.SSDVEncodingQuality)

	case "CAM":
		cfg := t.Store.Config()
		t.Arbiter.SendStatusStr(statuscode.CmdAckGetCamSize, cfg.CameraImageSize.String())
		t.Arbiter.SendStatusInt(statuscode.CmdAckGetCamQuality, cfg.CameraImageQuality)

	default:
		t.Arbiter.SendStatus(statuscode.CmdNackInvalidGet)
	}
}

// handleCtl 开关控制与受控重启
func (t *Task) handleCtl(target, value string) {
	switch {
	case target == "SYS" && value == "REBOOT":
		t.Arbiter.SendStatus(statuscode.SysRestarting)
		time.Sleep(t.RebootDelay)
		t.Restart()

	case target == "RELAY":
		switch value {
		case "ON":
			t.Store.SetStatus(state.FieldRelayEnabled, true)
			t.Arbiter.SendStatus(statuscode.CmdAckRelayOn)
		case "OFF":
			t.Store.SetStatus(state.FieldRelayEnabled, false)
			t.Arbiter.SendStatus(statuscode.CmdAckRelayOff)
		default:
			t.Arbiter.SendStatus(statuscode.CmdNackInvalidCtl)
		}

	case target == "SSDV":
		switch value {
		case "ON":
			t.Store.SetStatus(state.FieldSSDVEnabled, true)
			t.Arbiter.SendStatus(statuscode.CmdAckSSDVOn)
		case "OFF":
			t.Store.SetStatus(state.FieldSSDVEnabled, false)
			t.Arbiter.SendStatus(statuscode.CmdAckSSDVOff)
		default:
			t.Arbiter.SendStatus(statuscode.CmdNackInvalidCtl)
		}

	default:
		t.Arbiter.SendStatus(statuscode.CmdNackInvalidCtl)
	}
}

// handleSet 配置设置。图传进行期间一律拒绝。
func (t *Task) handleSet(target, value string) {
	if t.Store.Status().SSDVTransmitting {
		t.Arbiter.SendStatus(statuscode.CmdNackSSDVBusy)
		return
	}

	switch target {
	case "CAM_SIZE", "CAM_QUALITY":
		t.setCamera(target, value)
	case "SSDV_TYPE", "SSDV_QUALITY", "SSDV_CYCLE":
		t.setSSDV(target, value)
	default:
		t.Arbiter.SendStatus(statuscode.CmdNackInvalidSet)
	}
}

// setCamera 摄像头字段：先在候选配置上校验，通过后统一执行硬件重配
func (t *Task) setCamera(target, value string) {
	temp := t.Store.Config()
	changed := false

	switch target {
	case "CAM_SIZE":
		size, ok := state.ParseImageSize(value)
		if !ok {
			t.Arbiter.SendStatus(statuscode.CmdNackInvalidType)
			return
		}
		temp.CameraImageSize = size
		changed = true
		t.Arbiter.SendStatusStr(statuscode.CmdAckCamSize, size.String())

	case "CAM_QUALITY":
		quality, _ := strconv.Atoi(value)
		switch {
		case quality < 5 || quality > 20:
			t.Arbiter.SendStatus(statuscode.CmdNackSetCamQual)
		case temp.CameraImageSize > state.SizeSVGA && quality < 10:
			// 高分辨率下过低的质量值会超出编码缓冲，按候选配置整体校验
			t.Arbiter.SendStatus(statuscode.CmdNackSetCamQualLow)
		default:
			temp.CameraImageQuality = quality
			changed = true
			t.Arbiter.SendStatusInt(statuscode.CmdAckCamQuality, quality)
		}
	}

	if changed {
		t.applyCameraConfig(temp)
	}
}

// applyCameraConfig 原子写入配置后在摄像头锁内重配置；
// 失败回滚到默认摄像头参数再试一次，仍失败则通报后整机重启。
func (t *Task) applyCameraConfig(temp state.SystemConfig) {
	t.Store.LockCamera()
	defer t.Store.UnlockCamera()

	t.Store.UpdateConfig(temp)
	if t.Camera.Reconfigure() {
		t.Arbiter.SendStatus(statuscode.CamReconfigOK)
		return
	}

	t.Arbiter.SendStatus(statuscode.CamReconfigFail)

	def := state.DefaultConfig()
	cfg := t.Store.Config()
	cfg.CameraImageSize = def.CameraImageSize
	cfg.CameraImageQuality = def.CameraImageQuality
	t.Store.UpdateConfig(cfg)

	if t.Camera.Reconfigure() {
		t.Arbiter.SendStatus(statuscode.CamRestoreDefaultOK)
		return
	}

	// 连默认参数都恢复不了，属于重大故障
	t.Arbiter.SendStatus(statuscode.CamRestoreDefaultFail)
	t.Arbiter.SendStatus(statuscode.SysRestarting)
	t.Restart()
}

// setSSDV 编码参数：纯配置写入，无硬件路径，无需回滚
func (t *Task) setSSDV(target, value string) {
	temp := t.Store.Config()
	changed := false

	switch target {
	case "SSDV_TYPE":
		switch value {
		case "NORMAL":
			temp.SSDVPacketType = state.PacketNormal
			changed = true
			t.Arbiter.SendStatusInt(statuscode.CmdAckSSDVType, int(state.PacketNormal))
		case "NOFEC":
			temp.SSDVPacketType = state.PacketNoFEC
			changed = true
			t.Arbiter.SendStatusInt(statuscode.CmdAckSSDVType, int(state.PacketNoFEC))
		default:
			t.Arbiter.SendStatus(statuscode.CmdNackInvalidType)
		}

	case "SSDV_QUALITY":
		quality, _ := strconv.Atoi(value)
		if quality >= 0 && quality <= 6 {
			temp.SSDVEncodingQuality = quality
			changed = true
			t.Arbiter.SendStatusInt(statuscode.CmdAckSSDVQuality, quality)
		} else {
			t.Arbiter.SendStatus(statuscode.CmdNackSetSSDVQual)
		}

	case "SSDV_CYCLE":
		cycle, _ := strconv.Atoi(value)
		if cycle >= 10 && cycle <= 100 {
			temp.SSDVCycleTimeSec = cycle
			changed = true
			t.Arbiter.SendStatusInt(statuscode.CmdAckSSDVCycle, cycle)
		} else {
			t.Arbiter.SendStatus(statuscode.CmdNackSetSSDVCycle)
		}
	}

	if changed {
		t.Store.UpdateConfig(temp)
	}
}
