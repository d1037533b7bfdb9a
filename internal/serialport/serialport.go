// Package serialport 打开并配置物理串口（go.bug.st/serial）。
// 读超时设得很短，数据链路任务据此实现"排空当前可读字节"而不被挂住。
package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Options 串口参数
type Options struct {
	Device      string        // 设备路径，如 /dev/ttyS3
	Baud        int           // 波特率，如 9600
	ReadTimeout time.Duration // 读超时；0 取默认 10ms
}

// Open 打开 8N1 串口并配置读超时
func Open(opts Options) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: opts.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(opts.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", opts.Device, err)
	}

	rt := opts.ReadTimeout
	if rt <= 0 {
		rt = 10 * time.Millisecond
	}
	if err := port.SetReadTimeout(rt); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}
