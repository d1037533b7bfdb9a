package device

import "time"

// GPSReading GPS 字段快照。解析器是外部协作方，这里只消费查询结果。
type GPSReading struct {
	Time      time.Time // UTC 时间
	TimeValid bool      // 时间字段是否有效
	Latitude  float64   // 纬度（度）
	Longitude float64   // 经度（度）
	AltitudeM float64   // 海拔（米）
	SpeedKmh  float64   // 地速（km/h）
	Satellites int      // 可见卫星数
	HeadingDeg float64  // 航向角（度）
}

// GPS GPS 接收机查询接口。
// Drain 把串口里积压的语句全部喂给解析器，立即返回；
// FixValid 表示定位有效；Updated 表示自上次读取后位置有更新。
type GPS interface {
	Drain()
	FixValid() bool
	Updated() bool
	Read() GPSReading
}
