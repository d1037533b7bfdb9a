package alert

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/hab-payload/internal/state"
)

type recordBuzzer struct {
	mu     sync.Mutex
	pulses []bool
}

func (r *recordBuzzer) Set(on bool) {
	r.mu.Lock()
	r.pulses = append(r.pulses, on)
	r.mu.Unlock()
}

func (r *recordBuzzer) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.pulses...)
}

func newTestBeeper(buz *recordBuzzer, st *state.Store) *Beeper {
	b := New(buz, st)
	b.ShortPulse = time.Millisecond
	b.ReadyPulse = time.Millisecond
	b.FaultHold = time.Millisecond
	return b
}

func TestSignalFault(t *testing.T) {
	t.Run("蜂鸣器启用时三声短鸣并标记失败", func(t *testing.T) {
		buz := &recordBuzzer{}
		b := newTestBeeper(buz, state.NewStore())

		assert.False(t, b.InitFailed())
		b.SignalFault()

		assert.Equal(t, []bool{true, false, true, false, true, false}, buz.snapshot())
		assert.True(t, b.InitFailed())
	})

	t.Run("蜂鸣器关闭时静默但仍标记失败", func(t *testing.T) {
		buz := &recordBuzzer{}
		st := state.NewStore()
		st.SetStatus(state.FieldBuzzerEnabled, false)
		b := newTestBeeper(buz, st)

		b.SignalFault()

		assert.Empty(t, buz.snapshot())
		assert.True(t, b.InitFailed())
	})
}

func TestSignalReady(t *testing.T) {
	buz := &recordBuzzer{}
	b := newTestBeeper(buz, state.NewStore())

	b.SignalReady()

	assert.Equal(t, []bool{true, false}, buz.snapshot())
	assert.False(t, b.InitFailed())
}
