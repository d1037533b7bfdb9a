// Package bootstrap 载荷统一启动流程：按阶段装配组件、执行上电自检，
// 通过后拉起全部任务并等待退出信号。
package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/alert"
	"github.com/taoyao-code/hab-payload/internal/camera"
	"github.com/taoyao-code/hab-payload/internal/command"
	cfgpkg "github.com/taoyao-code/hab-payload/internal/config"
	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/httpserver"
	"github.com/taoyao-code/hab-payload/internal/image"
	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/recorder"
	"github.com/taoyao-code/hab-payload/internal/relay"
	"github.com/taoyao-code/hab-payload/internal/ssdv"
	"github.com/taoyao-code/hab-payload/internal/state"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
	"github.com/taoyao-code/hab-payload/internal/telemetry"
	"github.com/taoyao-code/hab-payload/internal/watchdog"
)

// App 载荷应用。硬件协作方由调用方注入，启动流程只做编排。
type App struct {
	Cfg *cfgpkg.Config
	Log *zap.Logger

	RadioPort   link.Port
	Camera      device.Camera
	GPS         device.GPS
	Battery     device.BatteryADC
	Thermometer device.ChipThermometer
	Buzzer      device.Buzzer
	Power       device.PowerGovernor
	Encoder     ssdv.Encoder

	// Describe 状态码描述表；nil 取内置默认表
	Describe *statuscode.DescribeMap

	// Restart 受控重启；生产环境退出进程，交由服务管理器拉起
	Restart func()

	// 测试可缩短的节拍
	BootSettle     time.Duration // 上电稳定等待
	ReadySettle    time.Duration // 自检通过后的工作稳定等待
	GPSPollDelay   time.Duration // GPS 初始化轮询间隔
	CalibrateDelay time.Duration // 相机校准帧间隔；0 取控制器默认值
}

// Run 统一启动流程
func (a *App) Run(ctx context.Context) error {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	cfg, log := a.Cfg, a.Log
	if a.Restart == nil {
		a.Restart = func() { os.Exit(1) }
	}
	if a.BootSettle == 0 {
		a.BootSettle = 10 * time.Second
	}
	if a.ReadySettle == 0 {
		a.ReadySettle = 2 * time.Second
	}
	if a.GPSPollDelay == 0 {
		a.GPSPollDelay = 100 * time.Millisecond
	}

	log.Info("starting balloon payload", zap.String("callsign", cfg.App.Callsign))

	// ========== 阶段1: 基础组件 ==========
	time.Sleep(a.BootSettle)
	a.Buzzer.Set(false)

	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	metricsHandler := metrics.Handler(reg)

	st := state.NewStore()
	beeper := alert.New(a.Buzzer, st)

	var rec *recorder.Recorder
	if cfg.Recorder.Enable {
		r, err := recorder.Open(cfg.Recorder.Path, cfg.App.Callsign, log)
		if err != nil {
			// 黑匣子打不开不应阻止飞行，记录后裸奔
			log.Warn("flight recorder unavailable", zap.Error(err))
		} else {
			rec = r
			defer rec.Close()
		}
	}

	q := link.NewTxQueue(cfg.Link.QueueCapacity)
	arb := link.NewArbiter(q, appm, log)
	arb.Sink = rec

	supervisor := watchdog.NewSupervisor(cfg.Watchdog.Timeout, func(task string) {
		arb.SendStatus(statuscode.SysRestarting)
		a.Restart()
	}, log, appm)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ========== 阶段2: 数据链路先行，开始下行自检指示 ==========
	dl := link.NewDatalink(a.RadioPort, q, st, supervisor.Register("datalink"), appm, log)
	dl.Pacer = link.NewPacer(cfg.Radio.Baud)
	go dl.Run(ctx)
	arb.SendStatus(statuscode.SysBooting)

	// ========== 阶段3: 核心模块初始化 ==========
	camCtl := camera.NewController(a.Camera, st, arb, log)
	if a.CalibrateDelay > 0 {
		camCtl.CalibrateDelay = a.CalibrateDelay
	}
	if camCtl.Setup() {
		camCtl.Calibrate()
	} else {
		beeper.SignalFault()
	}

	if _, err := a.Battery.Sample(); err != nil {
		log.Error("battery adc probe failed", zap.Error(err))
		arb.SendStatusStr(statuscode.ADCSampleFail, err.Error())
		beeper.SignalFault()
	}

	a.initGPS(ctx, arb, beeper)

	// ========== 阶段4: 初始化就绪检查 ==========
	if beeper.InitFailed() {
		arb.SendStatus(statuscode.SysInitFail)
		beeper.HoldFault()
		a.Restart()
		return nil
	}
	beeper.SignalReady()
	arb.SendStatus(statuscode.SysInitOK)
	if cfg.App.Debug {
		arb.SendStatus(statuscode.SysDevModeEnabled)
	}
	time.Sleep(a.ReadySettle)

	// ========== 阶段5: 拉起全部应用任务 ==========
	cmdTask := command.New(dl.CmdQueue, st, arb, camCtl, a.Restart,
		supervisor.Register("command"), appm, log)
	go cmdTask.Run(ctx)

	imgTask := image.New(cfg.App.Callsign, st, a.Camera, a.Encoder, arb, q, a.Power, beeper,
		supervisor.Register("image"), appm, log)
	go imgTask.Run(ctx)

	telTask := telemetry.New(cfg.App.Callsign, cfg.App.Debug, a.GPS, a.Battery, a.Thermometer,
		arb, supervisor.Register("telemetry"), appm, log)
	telTask.Sink = rec
	go telTask.Run(ctx)

	relayTask := relay.New(dl.RelayQueue, st, arb, supervisor.Register("relay"), appm, log)
	relayTask.Window = cfg.Relay.Window
	relayTask.Ceiling = cfg.Relay.Ceiling
	go relayTask.Run(ctx)

	go supervisor.Run(ctx)

	// 自检结束后关闭蜂鸣提示
	st.SetStatus(state.FieldBuzzerEnabled, false)

	// 地面联调控制台（飞行配置默认关闭）
	if cfg.HTTP.Enable {
		httpSrv := httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler,
			func() bool { return true }, st, q, a.Describe)
		go func() {
			if err := httpSrv.Start(); err != nil {
				log.Error("http server error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = httpSrv.Shutdown(sctx)
		}()
		log.Info("ground console started", zap.String("addr", cfg.HTTP.Addr))
	}

	log.Info("all tasks running")

	// ========== 阶段6: 等待退出信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case <-sigCh:
		log.Info("received shutdown signal")
	}
	cancel()
	return nil
}

// initGPS GPS 上电等待：排空串口直到出现有效定位或超时。
// 开发模式不依赖 GPS，直接按成功处理。
func (a *App) initGPS(ctx context.Context, arb *link.Arbiter, beeper *alert.Beeper) {
	arb.SendStatus(statuscode.GPSInitStart)

	if a.Cfg.App.Debug {
		arb.SendStatus(statuscode.GPSInitOK)
		return
	}

	deadline := time.Now().Add(a.Cfg.GPS.InitTimeout)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		a.GPS.Drain()
		if a.GPS.FixValid() {
			arb.SendStatus(statuscode.GPSInitOK)
			return
		}
		time.Sleep(a.GPSPollDelay)
	}

	arb.SendStatusStr(statuscode.GPSInitFail, "Timeout")
	beeper.SignalFault()
}
