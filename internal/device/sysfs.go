package device

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// 分压电路参数与整机校准系数（随硬件批次实测）
const (
	voltageDividerR1 = 10000.0
	voltageDividerR2 = 1000.0
	voltageCalFactor = 0.9518
)

// SysfsBatteryADC 经 IIO sysfs 读取分压后的电池电压。
// RawPath 指向 in_voltage_raw，ScaleMV 是单位原始值对应的毫伏数。
type SysfsBatteryADC struct {
	RawPath string
	ScaleMV float64
}

// Sample 读取一次电池电压（伏）
func (a *SysfsBatteryADC) Sample() (float64, error) {
	raw, err := readSysfsInt(a.RawPath)
	if err != nil {
		return 0, fmt.Errorf("battery adc sample: %w", err)
	}
	mv := float64(raw) * a.ScaleMV
	v := (mv / 1000.0) * (voltageDividerR1 + voltageDividerR2) / voltageDividerR2
	return v * voltageCalFactor, nil
}

// SysfsChipThermometer 经 thermal_zone 读取 SoC 温度（毫摄氏度）
type SysfsChipThermometer struct {
	TempPath string
}

// Enable thermal_zone 常开，无需上电动作
func (t *SysfsChipThermometer) Enable() error { return nil }

// Read 返回摄氏温度
func (t *SysfsChipThermometer) Read() (float64, error) {
	milli, err := readSysfsInt(t.TempPath)
	if err != nil {
		return 0, fmt.Errorf("chip thermometer read: %w", err)
	}
	return float64(milli) / 1000.0, nil
}

// SysfsBuzzer 经 GPIO value 文件驱动蜂鸣器
type SysfsBuzzer struct {
	ValuePath string
}

func (b *SysfsBuzzer) Set(on bool) {
	v := "0"
	if on {
		v = "1"
	}
	_ = os.WriteFile(b.ValuePath, []byte(v), 0o644)
}

// SysfsPowerGovernor 经 cpufreq governor 切换频率档位
type SysfsPowerGovernor struct {
	GovernorPath string
	LowGovernor  string // 通常 powersave
	FullGovernor string // 通常 performance
}

func (g *SysfsPowerGovernor) SetLow()  { _ = os.WriteFile(g.GovernorPath, []byte(g.LowGovernor), 0o644) }
func (g *SysfsPowerGovernor) SetFull() { _ = os.WriteFile(g.GovernorPath, []byte(g.FullGovernor), 0o644) }

func readSysfsInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}
