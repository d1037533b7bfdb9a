package statuscode

import "fmt"

// Code 下行状态码：系统、摄像头、GPS、SSDV、指令应答与传感器共用一个编号空间。
// 地面站依赖这些数值做解析，修改任何一项都属于协议变更。
type Code uint16

const (
	// 系统级状态码 (0x10xx)
	SysBooting        Code = 0x1000 // 系统正在启动
	SysInitOK         Code = 0x1001 // 系统初始化完成
	SysInitFail       Code = 0x1002 // 系统初始化失败
	SysRestarting     Code = 0x1003 // 系统将受控重启
	SysDevModeEnabled Code = 0x1004 // 处于开发者模式
	RelayRateLimited  Code = 0x1005 // 中继功能已限流

	// 摄像头模块状态码 (0x20xx)
	CamInitStart          Code = 0x2000 // 相机初始化开始
	CamInitOK             Code = 0x2001 // 相机初始化成功
	CamInitFail           Code = 0x2002 // 相机初始化失败
	CamCalibrateStart     Code = 0x2003 // 相机开始校准
	CamCalibrateOK        Code = 0x2004 // 相机校准成功
	CamCalibrateFail      Code = 0x2005 // 相机校准失败
	CamCaptureFail        Code = 0x2006 // 图像拍摄失败
	CamReconfigOK         Code = 0x2007 // 相机配置成功
	CamReconfigFail       Code = 0x2008 // 相机配置失败
	CamRestoreDefaultOK   Code = 0x2009 // 相机参数重置
	CamRestoreDefaultFail Code = 0x200A // 相机重置失败

	// GPS 模块状态码 (0x30xx)
	GPSInitStart Code = 0x3000 // GPS 初始化开始
	GPSInitOK    Code = 0x3001 // GPS 初始化成功
	GPSInitFail  Code = 0x3002 // GPS 初始化超时

	// SSDV 模块状态码 (0x40xx)
	SSDVEncodeStart  Code = 0x4000 // 图像编码开始
	SSDVEncodeEnd    Code = 0x4001 // 图像发送完毕
	SSDVEncodeError  Code = 0x4002 // 图像编码错误
	SSDVTxBufferFull Code = 0x4003 // 图像缓冲区满

	// 指令否定应答 (NACK) (0x50xx)
	CmdNackFormatError   Code = 0x5001 // 指令格式错误
	CmdNackNoValue       Code = 0x5002 // 指令缺少参数
	CmdNackInvalidType   Code = 0x5003 // 指令类型无效
	CmdNackInvalidGet    Code = 0x5004 // 查询目标无效
	CmdNackInvalidCtl    Code = 0x5005 // 控制目标无效
	CmdNackInvalidSet    Code = 0x5006 // 设置目标无效
	CmdNackSSDVBusy      Code = 0x5007 // 图传任务正忙
	CmdNackSetCamQual    Code = 0x5008 // 图像质量无效
	CmdNackSetCamQualLow Code = 0x5009 // 图像质量过高
	CmdNackSetSSDVQual   Code = 0x500A // 编码质量无效
	CmdNackSetSSDVCycle  Code = 0x500B // 图传周期无效

	// 控制 (CTL) 命令应答 (ACK)
	CmdAckRelayOn  Code = 0x500C // 中继功能已开启
	CmdAckRelayOff Code = 0x500D // 中继功能已关闭
	CmdAckSSDVOn   Code = 0x500E // 图传功能已开启
	CmdAckSSDVOff  Code = 0x500F // 图传功能已关闭

	// 设置 (SET) 命令应答 (ACK)
	CmdAckSSDVType    Code = 0x5010 // 图传模式已设置
	CmdAckSSDVQuality Code = 0x5011 // 图传质量已设置
	CmdAckSSDVCycle   Code = 0x5012 // 图传周期已设置
	CmdAckCamSize     Code = 0x5013 // 图像尺寸已设置
	CmdAckCamQuality  Code = 0x5014 // 图像质量已设置

	// 查询 (GET) 命令应答 (ACK) (0x51xx)
	CmdAckGetRelayStatus Code = 0x5100 // 中继状态
	CmdAckGetSSDVStatus  Code = 0x5101 // 图传状态
	CmdAckGetSSDVType    Code = 0x5102 // 图传模式
	CmdAckGetSSDVQuality Code = 0x5103 // 图传质量
	CmdAckGetSSDVCycle   Code = 0x5104 // 图传周期
	CmdAckGetCamSize     Code = 0x5105 // 图像尺寸
	CmdAckGetCamQuality  Code = 0x5106 // 图像质量

	// 传感器模块状态码 (0x60xx)
	ADCSampleFail Code = 0x6000 // ADC 电压采样连续失败
)

// Format 渲染下行状态帧正文。payload 为空时只输出状态码。
// 格式固定为 `Code: 0x%04X[, Info: <payload>]`，地面站按此解析。
func Format(code Code, payload string) string {
	if payload == "" {
		return fmt.Sprintf("Code: 0x%04X", uint16(code))
	}
	return fmt.Sprintf("Code: 0x%04X, Info: %s", uint16(code), payload)
}

// FormatInt 带数字负载的状态帧正文
func FormatInt(code Code, payload int) string {
	return Format(code, fmt.Sprintf("%d", payload))
}

// FormatBool 带布尔负载的状态帧正文（1/0 表示）
func FormatBool(code Code, payload bool) string {
	if payload {
		return Format(code, "1")
	}
	return Format(code, "0")
}
