package bootstrap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/hab-payload/internal/config"
	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/ssdv"
)

// fakePort 无入站数据的串口替身，记录全部下行字节
type fakePort struct {
	mu  sync.Mutex
	out []byte
}

func (p *fakePort) Read([]byte) (int, error) { return 0, nil }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.out = append(p.out, b...)
	p.mu.Unlock()
	return len(b), nil
}

func (p *fakePort) downlink() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.out)
}

type fakeCamera struct {
	initErr error
}

func (c *fakeCamera) Init(device.CameraParams) error { return c.initErr }
func (c *fakeCamera) Deinit() error                  { return nil }
func (c *fakeCamera) Capture() (*device.Frame, error) {
	return device.NewFrame([]byte{0xFF, 0xD8, 0xFF, 0xD9}, nil), nil
}

type fakeGPS struct{ fix bool }

func (g *fakeGPS) Drain()                  {}
func (g *fakeGPS) FixValid() bool          { return g.fix }
func (g *fakeGPS) Updated() bool           { return g.fix }
func (g *fakeGPS) Read() device.GPSReading { return device.GPSReading{} }

type fakeBattery struct{ err error }

func (b *fakeBattery) Sample() (float64, error) {
	if b.err != nil {
		return 0, b.err
	}
	return 7.4, nil
}

type fakeThermo struct{}

func (fakeThermo) Enable() error          { return nil }
func (fakeThermo) Read() (float64, error) { return 25, nil }

func testConfig() *cfgpkg.Config {
	return &cfgpkg.Config{
		App:      cfgpkg.AppConfig{Callsign: "BG7ZDQ", Debug: true},
		Radio:    cfgpkg.RadioConfig{Baud: 9600},
		GPS:      cfgpkg.GPSConfig{InitTimeout: 50 * time.Millisecond},
		Link:     cfgpkg.LinkConfig{QueueCapacity: 64},
		Relay:    cfgpkg.RelayConfig{Window: time.Minute, Ceiling: 80},
		Watchdog: cfgpkg.WatchdogConfig{Timeout: time.Minute},
	}
}

func newTestApp(cfg *cfgpkg.Config, port *fakePort, cam *fakeCamera, batt *fakeBattery, restart func()) *App {
	return &App{
		Cfg:            cfg,
		Log:            nil,
		RadioPort:      port,
		Camera:         cam,
		GPS:            &fakeGPS{fix: true},
		Battery:        batt,
		Thermometer:    fakeThermo{},
		Buzzer:         device.NopBuzzer{},
		Power:          device.NopPowerGovernor{},
		Encoder:        ssdv.NewPacketizer(),
		Restart:        restart,
		BootSettle:     time.Millisecond,
		ReadySettle:    time.Millisecond,
		GPSPollDelay:   time.Millisecond,
		CalibrateDelay: time.Millisecond,
	}
}

func TestRunSelfTestSucceeds(t *testing.T) {
	port := &fakePort{}
	cfg := testConfig()
	app := newTestApp(cfg, port, &fakeCamera{}, &fakeBattery{}, func() {
		t.Error("unexpected restart")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		assert.NoError(t, app.Run(ctx))
		close(done)
	}()

	// 自检序列逐条出现在下行链路上
	require.Eventually(t, func() bool {
		return strings.Contains(port.downlink(), "Code: 0x1001")
	}, 2*time.Second, 5*time.Millisecond)

	down := port.downlink()
	for _, code := range []string{
		"Code: 0x1000", // 启动
		"Code: 0x2000", // 相机初始化开始
		"Code: 0x2001", // 相机初始化成功
		"Code: 0x3000", // GPS 初始化开始
		"Code: 0x3001", // GPS 初始化成功（开发模式短路）
	} {
		assert.Contains(t, down, code)
	}
	assert.Contains(t, port.downlink(), "Code: 0x1004") // 开发者模式指示

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRunInitFailureRestarts(t *testing.T) {
	port := &fakePort{}
	cfg := testConfig()

	restarts := 0
	app := newTestApp(cfg, port, &fakeCamera{initErr: errors.New("probe failed")}, &fakeBattery{}, func() {
		restarts++
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		assert.NoError(t, app.Run(ctx))
		close(done)
	}()

	// 故障鸣响节拍按默认时长走，给足余量
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("app did not abort on failed self test")
	}

	down := port.downlink()
	assert.Contains(t, down, "Code: 0x2002") // 相机初始化失败
	assert.Contains(t, down, "Code: 0x1002") // 系统初始化失败
	assert.NotContains(t, down, "Code: 0x1001")
	assert.Equal(t, 1, restarts)
}
