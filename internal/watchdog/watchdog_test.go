package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReportsStalledTask(t *testing.T) {
	s := NewSupervisor(50*time.Millisecond, nil, nil, nil)
	healthy := s.Register("datalink")
	stalled := s.Register("telemetry")

	task, ok := s.check(time.Now())
	assert.False(t, ok, "fresh handles should pass")
	assert.Empty(t, task)

	// 等两个任务都超时，再只喂活其中一个：裁决必须点名另一个
	time.Sleep(80 * time.Millisecond)
	healthy.Kick()
	task, ok = s.check(time.Now())
	require.True(t, ok)
	assert.Equal(t, stalled.Name(), task)

	// 停摆裁决只出一次
	_, ok = s.check(time.Now())
	assert.False(t, ok)
}

func TestKickResetsAge(t *testing.T) {
	s := NewSupervisor(20*time.Millisecond, nil, nil, nil)
	h := s.Register("command")

	time.Sleep(30 * time.Millisecond)
	h.Kick()

	_, ok := s.check(time.Now())
	assert.False(t, ok, "a kicked handle must not be judged stalled")
}

func TestRunTriggersOnStall(t *testing.T) {
	var mu sync.Mutex
	var stalls []string

	s := NewSupervisor(10*time.Millisecond, func(task string) {
		mu.Lock()
		stalls = append(stalls, task)
		mu.Unlock()
	}, nil, nil)
	s.checkInterval = 5 * time.Millisecond
	s.Register("image")

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not react to a stalled task")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stalls, 1)
	assert.Equal(t, "image", stalls[0])
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewSupervisor(time.Minute, func(string) { t.Error("unexpected stall") }, nil, nil)
	s.checkInterval = time.Millisecond
	h := s.Register("relay")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	h.Kick()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop on cancel")
	}
}
