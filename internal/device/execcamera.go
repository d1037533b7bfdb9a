package device

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/taoyao-code/hab-payload/internal/state"
)

// CaptureCamera 调用外部拍摄程序（libcamera-jpeg / fswebcam 等）获取 JPEG。
// 拍摄程序须把整幅图像写到标准输出。
type CaptureCamera struct {
	Program string

	params CameraParams
	ready  bool
}

// Init 校验拍摄程序可用并记录工作参数
func (c *CaptureCamera) Init(p CameraParams) error {
	if _, err := exec.LookPath(c.Program); err != nil {
		return fmt.Errorf("capture program: %w", err)
	}
	c.params = p
	c.ready = true
	return nil
}

// Deinit 释放摄像头
func (c *CaptureCamera) Deinit() error {
	c.ready = false
	return nil
}

// Capture 拍摄一帧
func (c *CaptureCamera) Capture() (*Frame, error) {
	if !c.ready {
		return nil, errors.New("camera not initialised")
	}

	w, h := captureResolution(c.params.Size)
	cmd := exec.Command(c.Program,
		"-n", "-o", "-",
		"--width", strconv.Itoa(w),
		"--height", strconv.Itoa(h),
		"-q", strconv.Itoa(jpegQuality(c.params.Quality)))

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if out.Len() == 0 {
		return nil, errors.New("capture: empty frame")
	}
	return NewFrame(out.Bytes(), nil), nil
}

func captureResolution(size state.ImageSize) (int, int) {
	switch size {
	case state.SizeQVGA:
		return 320, 240
	case state.SizeVGA:
		return 640, 480
	case state.SizeSVGA:
		return 800, 600
	case state.SizeXGA:
		return 1024, 768
	case state.SizeSXGA:
		return 1280, 1024
	case state.SizeFHD:
		return 1920, 1080
	}
	return 640, 480
}

// jpegQuality 把压缩档位（[5,20]，数值越小越清晰）换算成
// 拍摄程序的 JPEG 质量（[1,100]，数值越大越清晰）
func jpegQuality(level int) int {
	q := 100 - level*4
	if q < 10 {
		q = 10
	}
	return q
}
