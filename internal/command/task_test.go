package command

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/hab-payload/internal/camera"
	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/state"
)

// fakeCamera 可编程失败次数的摄像头桩
type fakeCamera struct {
	initCalls   int
	deinitCalls int
	failInits   int // 前 N 次 Init 失败
	lastParams  device.CameraParams
}

func (c *fakeCamera) Init(p device.CameraParams) error {
	c.initCalls++
	c.lastParams = p
	if c.initCalls <= c.failInits {
		return assert.AnError
	}
	return nil
}

func (c *fakeCamera) Deinit() error {
	c.deinitCalls++
	return nil
}

func (c *fakeCamera) Capture() (*device.Frame, error) {
	return device.NewFrame([]byte{0xFF, 0xD8, 0xFF, 0xD9}, nil), nil
}

type harness struct {
	task     *Task
	store    *state.Store
	queue    *link.TxQueue
	cam      *fakeCamera
	restarts int
}

func newHarness() *harness {
	h := &harness{
		store: state.NewStore(),
		queue: link.NewTxQueue(64),
		cam:   &fakeCamera{},
	}
	arb := link.NewArbiter(h.queue, nil, nil)
	arb.PushTimeout = 10 * time.Millisecond
	arb.RetryDelay = time.Millisecond
	arb.TextDelay = time.Millisecond

	ctrl := camera.NewController(h.cam, h.store, arb, nil)
	ctrl.CalibrateDelay = 0

	h.task = New(nil, h.store, arb, ctrl, func() { h.restarts++ }, nil, nil, nil)
	h.task.RebootDelay = 0
	return h
}

// frames 取出全部已入队的下行文本帧
func (h *harness) frames() []string {
	var out []string
	for {
		p, ok := h.queue.Pop(time.Millisecond)
		if !ok {
			return out
		}
		out = append(out, string(p.Data))
	}
}

func (h *harness) containsCode(t *testing.T, frames []string, code string) bool {
	t.Helper()
	for _, f := range frames {
		if strings.Contains(f, code) {
			return true
		}
	}
	return false
}

func TestProcessFormatErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"空指令", "", "Code: 0x5001"},
		{"缺目标", "GET", "Code: 0x5001"},
		{"CTL缺值", "CTL,RELAY", "Code: 0x5002"},
		{"SET缺值", "SET,SSDV_CYCLE", "Code: 0x5002"},
		{"未知动词", "FOO,BAR,1", "Code: 0x5003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.task.Process(tt.raw)
			frames := h.frames()
			require.Len(t, frames, 1)
			assert.Contains(t, frames[0], tt.want)
		})
	}
}

func TestGetCommands(t *testing.T) {
	t.Run("GET RELAY", func(t *testing.T) {
		h := newHarness()
		h.task.Process("GET,RELAY")
		frames := h.frames()
		require.Len(t, frames, 1)
		assert.Equal(t, "** Code: 0x5100, Info: 1 **", frames[0])
	})

	t.Run("GET SSDV 四项应答", func(t *testing.T) {
		h := newHarness()
		h.task.Process("GET,SSDV")
		frames := h.frames()
		require.Len(t, frames, 4)
		assert.Contains(t, frames[0], "Code: 0x5101, Info: 1")
		assert.Contains(t, frames[1], "Code: 0x5104, Info: 60")
		assert.Contains(t, frames[2], "Code: 0x5102, Info: 1")
		assert.Contains(t, frames[3], "Code: 0x5103, Info: 2")
	})

	t.Run("GET CAM", func(t *testing.T) {
		h := newHarness()
		h.task.Process("GET,CAM")
		frames := h.frames()
		require.Len(t, frames, 2)
		assert.Contains(t, frames[0], "Code: 0x5105, Info: VGA")
		assert.Contains(t, frames[1], "Code: 0x5106, Info: 5")
	})

	t.Run("GET 幂等", func(t *testing.T) {
		h := newHarness()
		h.task.Process("GET,CAM")
		first := h.frames()
		h.task.Process("GET,CAM")
		second := h.frames()
		assert.Equal(t, first, second)
	})

	t.Run("未知目标", func(t *testing.T) {
		h := newHarness()
		h.task.Process("GET,BOGUS")
		frames := h.frames()
		require.Len(t, frames, 1)
		assert.Contains(t, frames[0], "Code: 0x5004")
	})
}

func TestCtlCommands(t *testing.T) {
	t.Run("RELAY 开关", func(t *testing.T) {
		h := newHarness()
		h.task.Process("CTL,RELAY,OFF")
		assert.False(t, h.store.Status().RelayEnabled)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x500D"))

		h.task.Process("CTL,RELAY,ON")
		assert.True(t, h.store.Status().RelayEnabled)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x500C"))
	})

	t.Run("SSDV 开关", func(t *testing.T) {
		h := newHarness()
		h.task.Process("CTL,SSDV,OFF")
		assert.False(t, h.store.Status().SSDVEnabled)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x500F"))
	})

	t.Run("SYS REBOOT", func(t *testing.T) {
		h := newHarness()
		h.task.Process("CTL,SYS,REBOOT")
		assert.Equal(t, 1, h.restarts)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x1003"))
	})

	t.Run("无效控制值", func(t *testing.T) {
		h := newHarness()
		h.task.Process("CTL,RELAY,MAYBE")
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5005"))
		assert.True(t, h.store.Status().RelayEnabled)
	})

	t.Run("无效控制目标", func(t *testing.T) {
		h := newHarness()
		h.task.Process("CTL,BOGUS,ON")
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5005"))
	})
}

func TestSetRejectedWhileTransmitting(t *testing.T) {
	targets := []string{
		"SET,CAM_SIZE,FHD",
		"SET,CAM_QUALITY,12",
		"SET,SSDV_TYPE,NORMAL",
		"SET,SSDV_QUALITY,3",
		"SET,SSDV_CYCLE,30",
	}

	for _, raw := range targets {
		t.Run(raw, func(t *testing.T) {
			h := newHarness()
			h.store.SetStatus(state.FieldSSDVTransmitting, true)
			before := h.store.Config()

			h.task.Process(raw)

			frames := h.frames()
			require.Len(t, frames, 1)
			assert.Contains(t, frames[0], "Code: 0x5007")
			assert.Equal(t, before, h.store.Config())
			assert.Zero(t, h.cam.initCalls)
		})
	}
}

func TestSetCamQuality(t *testing.T) {
	t.Run("范围内低分辨率", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,CAM_QUALITY,12")

		assert.Equal(t, 12, h.store.Config().CameraImageQuality)
		frames := h.frames()
		assert.True(t, h.containsCode(t, frames, "Code: 0x5014, Info: 12"))
		assert.True(t, h.containsCode(t, frames, "Code: 0x2007")) // 重配成功
		assert.Positive(t, h.cam.initCalls)
	})

	t.Run("越界拒绝", func(t *testing.T) {
		for _, v := range []string{"4", "21", "0", "abc"} {
			h := newHarness()
			h.task.Process("SET,CAM_QUALITY," + v)
			assert.Equal(t, 5, h.store.Config().CameraImageQuality, "value %s", v)
			assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5008"), "value %s", v)
			assert.Zero(t, h.cam.initCalls, "value %s", v)
		}
	})

	t.Run("高分辨率低质量按候选配置拒绝", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,CAM_SIZE,FHD")
		h.frames() // 清空

		h.task.Process("SET,CAM_QUALITY,8")
		assert.Equal(t, 5, h.store.Config().CameraImageQuality)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5009"))
	})

	t.Run("高分辨率高质量放行", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,CAM_SIZE,FHD")
		h.frames()

		h.task.Process("SET,CAM_QUALITY,10")
		assert.Equal(t, 10, h.store.Config().CameraImageQuality)
	})
}

func TestSetCamSize(t *testing.T) {
	t.Run("合法档位", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,CAM_SIZE,SXGA")
		assert.Equal(t, state.SizeSXGA, h.store.Config().CameraImageSize)
		frames := h.frames()
		assert.True(t, h.containsCode(t, frames, "Code: 0x5013, Info: SXGA"))
		assert.Positive(t, h.cam.deinitCalls)
	})

	t.Run("非法档位", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,CAM_SIZE,8K")
		assert.Equal(t, state.SizeVGA, h.store.Config().CameraImageSize)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5003"))
		assert.Zero(t, h.cam.initCalls)
	})
}

func TestCameraRollback(t *testing.T) {
	t.Run("重配失败回滚默认成功", func(t *testing.T) {
		h := newHarness()
		h.cam.failInits = 1 // 第一次重配失败，回滚成功

		h.task.Process("SET,CAM_SIZE,FHD")

		frames := h.frames()
		assert.True(t, h.containsCode(t, frames, "Code: 0x2008")) // 重配失败
		assert.True(t, h.containsCode(t, frames, "Code: 0x2009")) // 默认恢复成功
		assert.Zero(t, h.restarts)

		cfg := h.store.Config()
		assert.Equal(t, state.SizeVGA, cfg.CameraImageSize)
		assert.Equal(t, 5, cfg.CameraImageQuality)
	})

	t.Run("回滚也失败则单次致命重启", func(t *testing.T) {
		h := newHarness()
		h.cam.failInits = 99 // 全部失败

		h.task.Process("SET,CAM_SIZE,FHD")

		frames := h.frames()
		count := 0
		for _, f := range frames {
			if strings.Contains(f, "Code: 0x200A") {
				count++
			}
		}
		assert.Equal(t, 1, count, "exactly one fatal restore-fail emission")
		assert.True(t, h.containsCode(t, frames, "Code: 0x1003"))
		assert.Equal(t, 1, h.restarts)
	})
}

func TestSetSSDVParams(t *testing.T) {
	t.Run("类型切换", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,SSDV_TYPE,NORMAL")
		assert.Equal(t, state.PacketNormal, h.store.Config().SSDVPacketType)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5010, Info: 0"))

		h.task.Process("SET,SSDV_TYPE,NOFEC")
		assert.Equal(t, state.PacketNoFEC, h.store.Config().SSDVPacketType)
	})

	t.Run("类型非法值", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,SSDV_TYPE,TURBO")
		assert.Equal(t, state.PacketNoFEC, h.store.Config().SSDVPacketType)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5003"))
	})

	t.Run("质量边界", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,SSDV_QUALITY,6")
		assert.Equal(t, 6, h.store.Config().SSDVEncodingQuality)

		h.task.Process("SET,SSDV_QUALITY,7")
		assert.Equal(t, 6, h.store.Config().SSDVEncodingQuality)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x500A"))
	})

	t.Run("周期边界", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,SSDV_CYCLE,10")
		assert.Equal(t, 10, h.store.Config().SSDVCycleTimeSec)

		h.task.Process("SET,SSDV_CYCLE,101")
		assert.Equal(t, 10, h.store.Config().SSDVCycleTimeSec)
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x500B"))
	})

	t.Run("编码参数不触发硬件重配", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,SSDV_QUALITY,4")
		h.task.Process("SET,SSDV_CYCLE,30")
		assert.Zero(t, h.cam.initCalls)
		assert.Zero(t, h.cam.deinitCalls)
	})

	t.Run("未知设置目标", func(t *testing.T) {
		h := newHarness()
		h.task.Process("SET,BOGUS,1")
		assert.True(t, h.containsCode(t, h.frames(), "Code: 0x5006"))
	})
}
