package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/bootstrap"
	cfgpkg "github.com/taoyao-code/hab-payload/internal/config"
	"github.com/taoyao-code/hab-payload/internal/device"
	"github.com/taoyao-code/hab-payload/internal/gps"
	"github.com/taoyao-code/hab-payload/internal/logging"
	"github.com/taoyao-code/hab-payload/internal/serialport"
	"github.com/taoyao-code/hab-payload/internal/ssdv"
	"github.com/taoyao-code/hab-payload/internal/statuscode"
)

func main() {
	// 1) 加载配置
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()

	// 可选：用外部描述表覆盖状态码说明
	describe := statuscode.DefaultDescribeMap()
	if cfg.StatusCodes.DescribeFile != "" {
		if m, err := statuscode.LoadDescribeMap(cfg.StatusCodes.DescribeFile); err == nil {
			describe = m
		} else {
			log.Warn("load status describe map failed", zap.Error(err))
		}
	}

	// 3) 打开物理串口
	radioPort, err := serialport.Open(serialport.Options{
		Device:      cfg.Radio.Device,
		Baud:        cfg.Radio.Baud,
		ReadTimeout: cfg.Radio.ReadTimeout,
	})
	if err != nil {
		log.Fatal("open radio serial failed", zap.Error(err))
	}
	defer radioPort.Close()

	gpsPort, err := serialport.Open(serialport.Options{
		Device: cfg.GPS.Device,
		Baud:   cfg.GPS.Baud,
	})
	if err != nil {
		log.Fatal("open gps serial failed", zap.Error(err))
	}
	defer gpsPort.Close()

	// 4) 装配硬件协作方并启动
	app := &bootstrap.App{
		Cfg:       cfg,
		Log:       log,
		RadioPort: radioPort,
		Camera:    &device.CaptureCamera{Program: cfg.Hardware.CaptureProgram},
		GPS:       gps.NewReceiver(gpsPort, log),
		Battery: &device.SysfsBatteryADC{
			RawPath: cfg.Hardware.BatteryADCPath,
			ScaleMV: cfg.Hardware.BatteryScaleMV,
		},
		Thermometer: &device.SysfsChipThermometer{TempPath: cfg.Hardware.ThermalZonePath},
		Buzzer:      &device.SysfsBuzzer{ValuePath: cfg.Hardware.BuzzerGPIOPath},
		Power: &device.SysfsPowerGovernor{
			GovernorPath: cfg.Hardware.CPUFreqPath,
			LowGovernor:  "powersave",
			FullGovernor: "performance",
		},
		Encoder:  ssdv.NewPacketizer(),
		Describe: describe,
	}

	if err := app.Run(context.Background()); err != nil {
		log.Fatal("payload run failed", zap.Error(err))
	}
}
