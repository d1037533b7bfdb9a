package ssdv

import (
	"encoding/binary"
	"hash/crc32"
)

// Packetizer 基线分包编码器：把整幅 JPEG 按定长切片下发。
// 真正的 SSDV 编码（JPEG 重排 + RS 纠错）由机外编码器承担；
// 本实现保证包长、包头与校验字段的线格式稳定，供无 FEC 链路使用。
//
// 包格式（与 PacketSize 对齐）：
//   [0]    0x55 同步字节
//   [1]    包类型（state.PacketType）
//   [2:8]  呼号（右侧空格填充，6 字节）
//   [8]    图像编号
//   [9:11] 包序号（大端）
//   [11]   质量等级
//   [12:N-4] 载荷
//   [N-4:N]  CRC32（同步字节起至载荷尾，大端）
type Packetizer struct {
	params  Params
	pending []byte
	seq     uint16
	done    bool
}

const packetHeaderLen = 12
const packetPayloadLen = PacketSize - packetHeaderLen - 4

// NewPacketizer 创建基线分包编码器
func NewPacketizer() *Packetizer {
	return &Packetizer{}
}

// Reset 开始一幅新图像
func (e *Packetizer) Reset(p Params) {
	e.params = p
	e.pending = e.pending[:0]
	e.seq = 0
	e.done = false
}

// Feed 投喂源数据；长度为 0 视为源结束
func (e *Packetizer) Feed(src []byte) {
	if len(src) == 0 {
		e.done = true
		return
	}
	e.pending = append(e.pending, src...)
}

// NextPacket 拉取下一个数据包
func (e *Packetizer) NextPacket(dst []byte) Status {
	if len(dst) < PacketSize {
		return StatusError
	}
	if len(e.pending) < packetPayloadLen && !e.done {
		return StatusFeedMe
	}
	if len(e.pending) == 0 && e.done {
		return StatusEOI
	}

	n := packetPayloadLen
	if n > len(e.pending) {
		n = len(e.pending)
	}

	dst[0] = 0x55
	dst[1] = byte(e.params.Type)
	callsign := e.params.Callsign
	for i := 0; i < 6; i++ {
		if i < len(callsign) {
			dst[2+i] = callsign[i]
		} else {
			dst[2+i] = ' '
		}
	}
	dst[8] = e.params.ImageID
	binary.BigEndian.PutUint16(dst[9:11], e.seq)
	dst[11] = byte(e.params.Quality)

	copy(dst[packetHeaderLen:], e.pending[:n])
	// 末包载荷不足时补零
	for i := packetHeaderLen + n; i < PacketSize-4; i++ {
		dst[i] = 0
	}

	sum := crc32.ChecksumIEEE(dst[:PacketSize-4])
	binary.BigEndian.PutUint32(dst[PacketSize-4:PacketSize], sum)

	e.pending = e.pending[n:]
	e.seq++
	return StatusOK
}
