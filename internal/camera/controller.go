// Package camera 摄像头控制：初始化、校准与安全重配置。
// 硬件驱动本体是外部协作方（device.Camera），这里负责流程与下行通报。
package camera

import (
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
)

// CalibrateFrames 校准丢弃的预热帧数（自动曝光/白平衡稳定）
const CalibrateFrames = 5

// Controller 摄像头控制器。调用方负责持有摄像头硬件锁。
type Controller struct {
	Dev     device.Camera
	Store   *state.Store
	Arbiter *link.Arbiter
	Log     *zap.Logger

	// CalibrateDelay 校准帧之间的间隔，测试可缩短
	CalibrateDelay time.Duration
}

// NewController 创建摄像头控制器
func NewController(dev device.Camera, st *state.Store, arb *link.Arbiter, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		Dev:            dev,
		Store:          st,
		Arbiter:        arb,
		Log:            log,
		CalibrateDelay: 500 * time.Millisecond,
	}
}

// Setup 按当前系统配置初始化摄像头
func (c *Controller) Setup() bool {
	c.Arbiter.SendStatus(statuscode.CamInitStart)

	cfg := c.Store.Config()
	err := c.Dev.Init(device.CameraParams{
		Size:    cfg.CameraImageSize,
		Quality: cfg.CameraImageQuality,
	})
	if err != nil {
		c.Log.Error("camera init failed", zap.Error(err))
		c.Arbiter.SendStatusStr(statuscode.CamInitFail, err.Error())
		return false
	}

	c.Arbiter.SendStatus(statuscode.CamInitOK)
	return true
}

// Calibrate 连拍若干帧丢弃，等待自动曝光与白平衡收敛
func (c *Controller) Calibrate() bool {
	c.Arbiter.SendStatus(statuscode.CamCalibrateStart)

	for i := 0; i < CalibrateFrames; i++ {
		frame, err := c.Dev.Capture()
		if err != nil {
			c.Log.Error("camera calibrate capture failed", zap.Int("frame", i), zap.Error(err))
			c.Arbiter.SendStatus(statuscode.CamCalibrateFail)
			return false
		}
		time.Sleep(c.CalibrateDelay)
		frame.Release()
	}

	c.Arbiter.SendStatus(statuscode.CamCalibrateOK)
	return true
}

// Reconfigure 卸载驱动后按当前配置重新初始化并校准。
// 调用方必须持有摄像头硬件锁。
func (c *Controller) Reconfigure() bool {
	_ = c.Dev.Deinit()
	if !c.Setup() {
		return false
	}
	return c.Calibrate()
}
