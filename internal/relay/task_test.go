package relay

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/hab-payload/internal/link"
	"github.com/taoyao-code/hab-payload/internal/state"
)

func newTestTask(queueCap int) (*Task, chan string, *link.TxQueue, *state.Store) {
	st := state.NewStore()
	q := link.NewTxQueue(queueCap)
	arb := link.NewArbiter(q, nil, nil)
	arb.PushTimeout = 5 * time.Millisecond
	arb.RetryDelay = time.Millisecond
	arb.TextDelay = time.Millisecond

	inbound := make(chan string, 128)
	task := New(inbound, st, arb, nil, nil, nil)
	task.Window = 50 * time.Millisecond
	task.DisabledNap = 5 * time.Millisecond
	task.RecvTimeout = 5 * time.Millisecond
	return task, inbound, q, st
}

func drain(q *link.TxQueue) []string {
	var out []string
	for {
		p, ok := q.Pop(time.Millisecond)
		if !ok {
			return out
		}
		out = append(out, string(p.Data))
	}
}

func TestForwardReframesPayload(t *testing.T) {
	task, _, q, _ := newTestTask(16)

	task.forward("BG7ZDQ,BH4ABC,OM92,hello")

	frames := drain(q)
	require.Len(t, frames, 1)
	assert.Equal(t, "** ##RELAY,BG7ZDQ,BH4ABC,OM92,hello **", frames[0])
}

func TestRateLimitWindow(t *testing.T) {
	// 一个窗口内灌入 100 帧：恰好转发上限 80 帧 + 一条限流通报；
	// 窗口滚动后恢复转发
	task, inbound, q, _ := newTestTask(256)
	task.Window = 200 * time.Millisecond

	for i := 0; i < 100; i++ {
		inbound <- fmt.Sprintf("frame-%d", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(inbound) == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	frames := drain(q)
	forwarded, notices := 0, 0
	for _, f := range frames {
		switch {
		case strings.Contains(f, "##RELAY,"):
			forwarded++
		case strings.Contains(f, "Code: 0x1005"):
			notices++
		}
	}
	assert.Equal(t, 80, forwarded)
	assert.Equal(t, 1, notices)

	// 等窗口滚动，下一帧应重新放行
	time.Sleep(250 * time.Millisecond)
	inbound <- "after-reset"
	require.Eventually(t, func() bool { return len(inbound) == 0 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not stop")
	}

	frames = drain(q)
	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], "##RELAY,after-reset")
}

func TestDisabledSkipsInbound(t *testing.T) {
	task, inbound, q, st := newTestTask(16)
	st.SetStatus(state.FieldRelayEnabled, false)

	inbound <- "should-wait"

	ctx, cancel := context.WithCancel(context.Background())
	go task.Run(ctx)
	time.Sleep(25 * time.Millisecond)

	// 关闭期间不消费队列也不转发
	assert.Len(t, inbound, 1)
	assert.Equal(t, 0, q.Len())

	// 重新开启后恢复转发
	st.SetStatus(state.FieldRelayEnabled, true)
	require.Eventually(t, func() bool { return q.Len() > 0 }, time.Second, time.Millisecond)
	cancel()

	frames := drain(q)
	require.NotEmpty(t, frames)
	assert.Contains(t, frames[0], "##RELAY,should-wait")
}
