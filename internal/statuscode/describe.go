package statuscode

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DescribeMap 状态码描述映射：code -> 人类可读描述。
// 内置默认表，可用 YAML 文件覆盖（地面调试台与日志使用，不进下行链路）。
type DescribeMap struct {
	Map map[uint16]string `yaml:"map"`
}

// DefaultDescribeMap 返回内置的状态码描述表
func DefaultDescribeMap() *DescribeMap {
	return &DescribeMap{
		Map: map[uint16]string{
			uint16(SysBooting):        "system booting",
			uint16(SysInitOK):         "system init ok",
			uint16(SysInitFail):       "system init failed",
			uint16(SysRestarting):     "controlled restart",
			uint16(SysDevModeEnabled): "developer mode enabled",
			uint16(RelayRateLimited):  "relay rate limited",

			uint16(CamInitStart):          "camera init start",
			uint16(CamInitOK):             "camera init ok",
			uint16(CamInitFail):           "camera init failed",
			uint16(CamCalibrateStart):     "camera calibrate start",
			uint16(CamCalibrateOK):        "camera calibrate ok",
			uint16(CamCalibrateFail):      "camera calibrate failed",
			uint16(CamCaptureFail):        "camera capture failed",
			uint16(CamReconfigOK):         "camera reconfig ok",
			uint16(CamReconfigFail):       "camera reconfig failed",
			uint16(CamRestoreDefaultOK):   "camera defaults restored",
			uint16(CamRestoreDefaultFail): "camera defaults restore failed",

			uint16(GPSInitStart): "gps init start",
			uint16(GPSInitOK):    "gps init ok",
			uint16(GPSInitFail):  "gps init timeout",

			uint16(SSDVEncodeStart):  "image encode start",
			uint16(SSDVEncodeEnd):    "image transmit complete",
			uint16(SSDVEncodeError):  "image encode error",
			uint16(SSDVTxBufferFull): "image tx queue full",

			uint16(CmdNackFormatError):   "command format error",
			uint16(CmdNackNoValue):       "command value missing",
			uint16(CmdNackInvalidType):   "command verb invalid",
			uint16(CmdNackInvalidGet):    "get target invalid",
			uint16(CmdNackInvalidCtl):    "ctl target invalid",
			uint16(CmdNackInvalidSet):    "set target invalid",
			uint16(CmdNackSSDVBusy):      "image transfer busy",
			uint16(CmdNackSetCamQual):    "camera quality out of range",
			uint16(CmdNackSetCamQualLow): "camera quality too low for size",
			uint16(CmdNackSetSSDVQual):   "ssdv quality out of range",
			uint16(CmdNackSetSSDVCycle):  "ssdv cycle out of range",

			uint16(ADCSampleFail): "adc sampling failed",
		},
	}
}

// LoadDescribeMap 从 YAML 文件加载描述表覆盖
func LoadDescribeMap(path string) (*DescribeMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read describe map: %w", err)
	}
	var m DescribeMap
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal describe map: %w", err)
	}
	if m.Map == nil {
		m.Map = make(map[uint16]string)
	}
	return &m, nil
}

// Describe 返回状态码描述；未知码返回带数值的占位描述
func (m *DescribeMap) Describe(code Code) string {
	if m != nil && m.Map != nil {
		if d, ok := m.Map[uint16(code)]; ok {
			return d
		}
	}
	return fmt.Sprintf("unknown code (0x%04X)", uint16(code))
}
