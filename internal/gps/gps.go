// Package gps 从 NMEA 串口流维护最新定位快照。
// 解析交给 go-nmea，本层只做行组装与快照维护；
// Drain 由遥测任务在自己的周期里驱动，这里不起协程。
package gps

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/device"
)

const knotsToKmh = 1.852

// Receiver NMEA 定位接收机
type Receiver struct {
	port io.Reader
	log  *zap.Logger

	mu       sync.Mutex
	reading  device.GPSReading
	fixValid bool
	updated  bool

	line    []byte
	scratch [256]byte
}

// NewReceiver 创建接收机；port 须配置短读超时，无数据时 Read 立即返回 0
func NewReceiver(port io.Reader, log *zap.Logger) *Receiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Receiver{port: port, log: log}
}

// Drain 排空串口当前可读的全部字节并逐行解析
func (r *Receiver) Drain() {
	for {
		n, err := r.port.Read(r.scratch[:])
		if n > 0 {
			r.feed(r.scratch[:n])
		}
		if n == 0 || err != nil {
			return
		}
	}
}

// FixValid 是否已有过有效定位
func (r *Receiver) FixValid() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fixValid
}

// Updated 自上次 Read 以来是否有新的有效定位
func (r *Receiver) Updated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updated
}

// Read 返回定位快照并清除新鲜标记
func (r *Receiver) Read() device.GPSReading {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = false
	return r.reading
}

func (r *Receiver) feed(data []byte) {
	for _, b := range data {
		if b == '\n' {
			r.handleLine(strings.TrimSpace(string(r.line)))
			r.line = r.line[:0]
			continue
		}
		// 异常长行直接丢弃重来，NMEA 单句不超过 82 字节
		if len(r.line) >= 128 {
			r.line = r.line[:0]
		}
		r.line = append(r.line, b)
	}
}

func (r *Receiver) handleLine(line string) {
	if line == "" {
		return
	}
	s, err := nmea.Parse(line)
	if err != nil {
		// 上电初期常见半截语句，静默跳过
		return
	}

	switch m := s.(type) {
	case nmea.RMC:
		if m.Validity != "A" {
			return
		}
		r.mu.Lock()
		r.reading.Latitude = m.Latitude
		r.reading.Longitude = m.Longitude
		r.reading.SpeedKmh = m.Speed * knotsToKmh
		r.reading.HeadingDeg = m.Course
		if m.Date.Valid && m.Time.Valid {
			r.reading.Time = time.Date(
				2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
				m.Time.Hour, m.Time.Minute, m.Time.Second, 0, time.UTC)
			r.reading.TimeValid = true
		}
		r.fixValid = true
		r.updated = true
		r.mu.Unlock()

	case nmea.GGA:
		r.mu.Lock()
		r.reading.AltitudeM = m.Altitude
		r.reading.Satellites = int(m.NumSatellites)
		r.mu.Unlock()
	}
}
