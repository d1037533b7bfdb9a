package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Callsign string `mapstructure:"callsign"`
	Debug    bool   `mapstructure:"debug"`
}

// RadioConfig 无线电数传串口配置
type RadioConfig struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

// GPSConfig GPS 接收机串口配置
type GPSConfig struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	InitTimeout time.Duration `mapstructure:"initTimeout"`
}

// LinkConfig 下行链路配置
type LinkConfig struct {
	QueueCapacity int `mapstructure:"queueCapacity"`
}

// RelayConfig 中继限流配置。窗口与上限历代固件并不一致，按可调参数处理。
type RelayConfig struct {
	Window  time.Duration `mapstructure:"window"`
	Ceiling int           `mapstructure:"ceiling"`
}

// WatchdogConfig 软件看门狗配置
type WatchdogConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RecorderConfig 飞行记录仪配置
type RecorderConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// HTTPConfig 地面测试控制台 HTTP 配置。飞行配置默认关闭。
type HTTPConfig struct {
	Enable       bool          `mapstructure:"enable"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// HardwareConfig Linux 外设访问路径配置
type HardwareConfig struct {
	CaptureProgram  string  `mapstructure:"captureProgram"`
	BatteryADCPath  string  `mapstructure:"batteryAdcPath"`
	BatteryScaleMV  float64 `mapstructure:"batteryScaleMv"`
	ThermalZonePath string  `mapstructure:"thermalZonePath"`
	BuzzerGPIOPath  string  `mapstructure:"buzzerGpioPath"`
	CPUFreqPath     string  `mapstructure:"cpufreqPath"`
}

// StatusCodesConfig 状态码描述表覆盖文件
type StatusCodesConfig struct {
	DescribeFile string `mapstructure:"describeFile"`
}

// Config 顶层配置结构
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Radio       RadioConfig       `mapstructure:"radio"`
	GPS         GPSConfig         `mapstructure:"gps"`
	Link        LinkConfig        `mapstructure:"link"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Watchdog    WatchdogConfig    `mapstructure:"watchdog"`
	Recorder    RecorderConfig    `mapstructure:"recorder"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Hardware    HardwareConfig    `mapstructure:"hardware"`
	StatusCodes StatusCodesConfig `mapstructure:"statusCodes"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 HAB_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("HAB_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 HAB_，并将点号替换为下划线
	v.SetEnvPrefix("HAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if fmt.Sprintf("%T", err) != fmt.Sprintf("%T", notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.callsign", "BG7ZDQ")
	v.SetDefault("app.debug", false)

	v.SetDefault("radio.device", "/dev/ttyS1")
	v.SetDefault("radio.baud", 9600)
	v.SetDefault("radio.readTimeout", "10ms")

	v.SetDefault("gps.device", "/dev/ttyS2")
	v.SetDefault("gps.baud", 9600)
	v.SetDefault("gps.initTimeout", "60s")

	v.SetDefault("link.queueCapacity", 120)

	v.SetDefault("relay.window", "2m")
	v.SetDefault("relay.ceiling", 80)

	v.SetDefault("watchdog.timeout", "120s")

	v.SetDefault("recorder.enable", true)
	v.SetDefault("recorder.path", "/var/lib/hab-payload/flight.db")

	v.SetDefault("http.enable", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/hab-payload.log")
	v.SetDefault("logging.file.maxSize", 50)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("hardware.captureProgram", "libcamera-jpeg")
	v.SetDefault("hardware.batteryAdcPath", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")
	v.SetDefault("hardware.batteryScaleMv", 0.8059) // 12bit ADC, 3.3V 基准
	v.SetDefault("hardware.thermalZonePath", "/sys/class/thermal/thermal_zone0/temp")
	v.SetDefault("hardware.buzzerGpioPath", "/sys/class/gpio/gpio17/value")
	v.SetDefault("hardware.cpufreqPath", "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor")

	v.SetDefault("statusCodes.describeFile", "")
}
