package device

// BatteryADC 电池电压 ADC。单次采样返回电池端电压（伏），
// 分压与校准换算在驱动内完成（外部协作方，不在本层展开）。
type BatteryADC interface {
	Sample() (float64, error)
}

// ChipThermometer 机内温度传感器。
// Enable 做寄存器级上电动作，之后需要短暂稳定时间再读数。
type ChipThermometer interface {
	Enable() error
	Read() (float64, error)
}

// Buzzer 蜂鸣器
type Buzzer interface {
	Set(on bool)
}

// PowerGovernor CPU 频率档位控制：图传周期间降频节电
type PowerGovernor interface {
	SetLow()
	SetFull()
}

// NopBuzzer 空蜂鸣器（无硬件时使用）
type NopBuzzer struct{}

func (NopBuzzer) Set(bool) {}

// NopPowerGovernor 空频率控制（无 cpufreq 权限时使用）
type NopPowerGovernor struct{}

func (NopPowerGovernor) SetLow()  {}
func (NopPowerGovernor) SetFull() {}
