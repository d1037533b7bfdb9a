package telemetry

import (
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/hab-payload/internal/statuscode"
)

// BatteryFailSentinel 电池采样全部失败时上报的哨兵值
const BatteryFailSentinel = -1145.14

const sensorOversample = 5

// batteryVoltage 过采样电池电压：5 次采样取均值，失败样本丢弃；
// 全部失败时下行 ADC 故障状态并返回哨兵值。
func (t *Task) batteryVoltage() float64 {
	var total float64
	valid := 0
	var lastErr error

	for i := 0; i < sensorOversample; i++ {
		v, err := t.Battery.Sample()
		if err == nil {
			total += v
			valid++
		} else {
			lastErr = err
		}
		time.Sleep(t.SampleDelay)
	}

	if valid == 0 {
		t.Log.Error("battery adc sampling failed", zap.Error(lastErr))
		t.Arbiter.SendStatusStr(statuscode.ADCSampleFail, lastErr.Error())
		return BatteryFailSentinel
	}
	return total / float64(valid)
}

// chipTemperature 机内温度：上电激活 → 稳定延时 → 5 次过采样取均值
func (t *Task) chipTemperature() float64 {
	if err := t.Thermometer.Enable(); err != nil {
		t.Log.Warn("chip thermometer enable failed", zap.Error(err))
	}
	time.Sleep(t.SettleDelay)

	var total float64
	valid := 0
	for i := 0; i < sensorOversample; i++ {
		v, err := t.Thermometer.Read()
		if err == nil {
			total += v
			valid++
		}
		time.Sleep(t.ReadDelay)
	}

	if valid == 0 {
		return 0
	}
	return total / float64(valid)
}
