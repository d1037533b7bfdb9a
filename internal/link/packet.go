// Package link 实现下行链路仲裁：所有出站字节经由一个有界发送队列
// 汇聚到唯一持有串口的数据链路任务，入站字节在同一任务内组帧分发。
package link

// MaxFrameSize 收发帧缓冲区上限（字节）
const MaxFrameSize = 512

// 入站帧分类前缀
const (
	CommandPrefix = "@@"
	RelayPrefix   = "##"
)

// RadioPacket 发送队列中的一个数据包。
// 入队即移交所有权，数据链路任务消费后即失效。
type RadioPacket struct {
	Data   []byte
	Binary bool
}
