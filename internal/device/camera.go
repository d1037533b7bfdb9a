// Package device 定义载荷外设的协作接口与 Linux 侧实现。
// 任务层只依赖接口，物理驱动与测试桩都在这层之下。
package device

import "github.com/taoyao-code/hab-payload/internal/state"

// CameraParams 摄像头工作参数（来自系统配置的摄像头字段）
type CameraParams struct {
	Size    state.ImageSize
	Quality int
}

// Frame 一帧 JPEG 图像。Release 归还底层帧缓冲，调用一次。
type Frame struct {
	Data    []byte
	release func()
}

// NewFrame 包装一帧图像数据；release 可为 nil
func NewFrame(data []byte, release func()) *Frame {
	return &Frame{Data: data, release: release}
}

// Release 归还帧缓冲
func (f *Frame) Release() {
	if f != nil && f.release != nil {
		f.release()
		f.release = nil
	}
}

// Camera 摄像头驱动：阻塞式拍摄与重配置。
// Init/Deinit/Capture 都可能长时间阻塞，调用方持摄像头硬件锁。
type Camera interface {
	Init(p CameraParams) error
	Deinit() error
	Capture() (*Frame, error)
}
