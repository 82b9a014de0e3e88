package observer

import (
	"errors"
	"testing"

	"github.com/specialistvlad/graphcall/memory"
	"github.com/specialistvlad/graphcall/memscope"
	"github.com/stretchr/testify/assert"
)

func testMemory() *memory.Memory {
	return memory.New("req", memscope.NewRoot(), memory.Available("in"), nil)
}

func TestFire_NilHookReturnsNoopAfter(t *testing.T) {
	after := Fire(nil, "role", testMemory(), nil)
	assert.NotPanics(t, func() { after(nil, nil) })
}

func TestFire_HookPanicReportedAndAfterIsNoop(t *testing.T) {
	var reported error
	hook := func(role string, mem *memory.Memory) AfterFunc {
		panic("boom")
	}
	after := Fire(hook, "role", testMemory(), func(err error) { reported = err })

	require := assert.New(t)
	require.Error(reported)
	require.NotPanics(func() { after(nil, nil) })
}

func TestFire_AfterPanicReported(t *testing.T) {
	var reported error
	hook := func(role string, mem *memory.Memory) AfterFunc {
		return func(value any, err error) { panic(errors.New("after boom")) }
	}
	after := Fire(hook, "role", testMemory(), func(err error) { reported = err })

	after(nil, nil)
	assert.EqualError(t, reported, "after boom")
}

func TestFire_SuccessfulHookDeliversOutcome(t *testing.T) {
	var gotValue any
	var gotErr error
	hook := func(role string, mem *memory.Memory) AfterFunc {
		return func(value any, err error) { gotValue, gotErr = value, err }
	}
	after := Fire(hook, "role", testMemory(), nil)
	after("v", nil)

	assert.Equal(t, "v", gotValue)
	assert.NoError(t, gotErr)
}

func TestNoop_AllHooksReturnNil(t *testing.T) {
	var o Observer = Noop{}
	mem := testMemory()
	assert.Nil(t, o.EveryCall("r", mem))
	assert.Nil(t, o.FirstCall("r", mem))
	assert.Nil(t, o.BeforeBehavior("r", mem))
	assert.Nil(t, o.BeforeCustomAction("r", mem))
}

func TestLogging_SatisfiesObserverAndDoesNotPanic(t *testing.T) {
	var o Observer = Logging{}
	mem := testMemory()

	after := o.EveryCall("r", mem)
	require := assert.New(t)
	require.NotNil(after)
	require.NotPanics(func() { after("v", nil) })

	after = o.FirstCall("r", mem)
	require.NotPanics(func() { after(nil, errors.New("boom")) })
}
