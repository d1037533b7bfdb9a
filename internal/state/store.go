// Package state 持有两份长生命周期的系统记录：动态配置与实时状态。
// 所有访问都是整体拷入/拷出，锁只保护拷贝动作本身，绝不跨阻塞调用持有；
// 摄像头硬件锁是唯一例外，拍摄与重配置本质上是串行操作。
package state

import "sync"

// ImageSize 摄像头图像尺寸档位（有序，便于阈值比较）
type ImageSize int

const (
	SizeQVGA ImageSize = iota
	SizeVGA
	SizeSVGA
	SizeXGA
	SizeSXGA
	SizeFHD
)

// String 返回地面站指令使用的档位名
func (s ImageSize) String() string {
	switch s {
	case SizeQVGA:
		return "QVGA"
	case SizeVGA:
		return "VGA"
	case SizeSVGA:
		return "SVGA"
	case SizeXGA:
		return "XGA"
	case SizeSXGA:
		return "SXGA"
	case SizeFHD:
		return "FHD"
	}
	return "UNKNOWN"
}

// ParseImageSize 按地面站档位名解析图像尺寸。
// SVGA 是内部阈值档位，不在可设置集合内。
func ParseImageSize(name string) (ImageSize, bool) {
	switch name {
	case "FHD":
		return SizeFHD, true
	case "SXGA":
		return SizeSXGA, true
	case "XGA":
		return SizeXGA, true
	case "VGA":
		return SizeVGA, true
	case "QVGA":
		return SizeQVGA, true
	}
	return 0, false
}

// PacketType SSDV 数据包类型
type PacketType int

const (
	PacketNormal PacketType = 0 // 常规模式（带 FEC）
	PacketNoFEC  PacketType = 1 // 轻量化模式（无 FEC）
)

// SystemConfig 系统动态配置。只会被指令任务整体替换。
type SystemConfig struct {
	CameraImageSize     ImageSize  // 摄像头图像尺寸
	CameraImageQuality  int        // 摄像头图像质量 [5,20]
	SSDVPacketType      PacketType // SSDV 数据类型
	SSDVEncodingQuality int        // SSDV 编码质量 [0,6]
	SSDVCycleTimeSec    int        // SSDV 发送周期 [10,100] 秒
}

// DefaultConfig 上电默认配置
func DefaultConfig() SystemConfig {
	return SystemConfig{
		CameraImageSize:     SizeVGA,
		CameraImageQuality:  5,
		SSDVPacketType:      PacketNoFEC,
		SSDVEncodingQuality: 2,
		SSDVCycleTimeSec:    60,
	}
}

// SystemStatus 系统实时运行状态
type SystemStatus struct {
	RelayEnabled     bool // 中继功能启用状态
	SSDVEnabled      bool // 图传功能启用状态
	BuzzerEnabled    bool // 蜂鸣功能启用状态
	SSDVTransmitting bool // 图像传输进行状态（跨任务唯一协调点）
}

// DefaultStatus 上电默认状态
func DefaultStatus() SystemStatus {
	return SystemStatus{
		RelayEnabled:  true,
		SSDVEnabled:   true,
		BuzzerEnabled: true,
	}
}

// StatusField 可单独更新的状态字段
type StatusField int

const (
	FieldRelayEnabled StatusField = iota
	FieldSSDVEnabled
	FieldBuzzerEnabled
	FieldSSDVTransmitting
)

// Store 共享状态仓库。配置与状态用独立锁，避免无关争用；
// 摄像头硬件锁跨拍摄/重配置持有。
type Store struct {
	configMu sync.Mutex
	config   SystemConfig

	statusMu sync.Mutex
	status   SystemStatus

	cameraMu sync.Mutex
}

// NewStore 以上电默认值创建仓库
func NewStore() *Store {
	return &Store{
		config: DefaultConfig(),
		status: DefaultStatus(),
	}
}

// Config 返回当前配置的一致性快照
func (s *Store) Config() SystemConfig {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	return s.config
}

// UpdateConfig 整体替换系统配置
func (s *Store) UpdateConfig(cfg SystemConfig) {
	s.configMu.Lock()
	s.config = cfg
	s.configMu.Unlock()
}

// Status 返回当前状态的一致性快照
func (s *Store) Status() SystemStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// SetStatus 在锁内精确修改单个状态字段
func (s *Store) SetStatus(field StatusField, value bool) {
	s.statusMu.Lock()
	switch field {
	case FieldRelayEnabled:
		s.status.RelayEnabled = value
	case FieldSSDVEnabled:
		s.status.SSDVEnabled = value
	case FieldBuzzerEnabled:
		s.status.BuzzerEnabled = value
	case FieldSSDVTransmitting:
		s.status.SSDVTransmitting = value
	}
	s.statusMu.Unlock()
}

// LockCamera 获取摄像头硬件资源锁
func (s *Store) LockCamera() { s.cameraMu.Lock() }

// UnlockCamera 释放摄像头硬件资源锁
func (s *Store) UnlockCamera() { s.cameraMu.Unlock() }
