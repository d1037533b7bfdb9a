// Package ssdv 定义图像分包编码器的拉取式契约。
// 编码与 FEC 算法本体是外部协作方，本层只约定状态机：
// 编码器索要输入、产出定长数据包、以 EOI 或错误收尾。
package ssdv

import "github.com/taoyao-code/hab-payload/internal/state"

// PacketSize 单个数据包的固定长度（字节）。解码端按此长度恢复边界。
const PacketSize = 256

// FeedChunkSize 每次投喂编码器的源数据长度（字节）
const FeedChunkSize = 128

// Status 编码器拉取一次的结果
type Status int

const (
	StatusOK     Status = iota // 输出缓冲区已有一个完整数据包
	StatusFeedMe               // 编码器需要更多源数据
	StatusEOI                  // 整幅图像编码完毕
	StatusError                // 编码出错，本幅图像作废
)

// Params 单幅图像的编码参数
type Params struct {
	Type     state.PacketType
	Callsign string
	ImageID  uint8
	Quality  int
}

// Encoder 拉取式图像编码器。
// 使用方式：Reset 后循环调用 NextPacket；返回 StatusFeedMe 时用 Feed
// 投喂源数据再继续拉取；StatusOK 时 dst 前 PacketSize 字节是一个完整包。
// 重试与退避不属于编码器，由驱动它的任务负责。
type Encoder interface {
	Reset(p Params)
	Feed(src []byte)
	NextPacket(dst []byte) Status
}
