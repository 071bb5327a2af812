// Package slot implements the Slot Context (§4.F): per-slot runtime
// state, the cooperative control-signal channel, device bindings, and
// step-result history.
package slot

import (
	"sync"
	"time"

	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/state"
	"github.com/ormasoftchile/catengine/pkg/variable"
)

// ControlSignal is a cooperative control message delivered into a
// running slot's control channel.
type ControlSignal int

const (
	SignalPause ControlSignal = iota
	SignalResume
	SignalStop
	SignalStepNext
	SignalSkipCurrent
)

// controlChannelCapacity is the bounded FIFO capacity for control signals.
const controlChannelCapacity = 16

// Context is one slot's runtime state, shared between the foreground
// caller and the background executor goroutine under a readers-writer
// discipline (see Engine.slotsMu).
type Context struct {
	SlotID  uint32
	machine *state.Machine

	mu             sync.Mutex
	sn             string
	bindings       model.SlotBinding
	currentStep    int
	startTimeMs    int64
	hasStart       bool
	endTimeMs      int64
	hasEnd         bool
	lastError      string
	stepResults    []model.StepResult

	Variables *variable.Pool

	ctrlMu   sync.Mutex
	ctrlTx   chan ControlSignal
	ctrlRx   chan ControlSignal
	rxHeldBy string // "" or "executor" — documents rx ownership, not load-bearing
}

// New creates a slot context with a fresh control channel and an empty
// variable pool, starting Idle.
func New(slotID uint32) *Context {
	ch := make(chan ControlSignal, controlChannelCapacity)
	return &Context{
		SlotID:    slotID,
		machine:   state.New(),
		Variables: variable.New(),
		ctrlTx:    ch,
		ctrlRx:    ch,
	}
}

// Machine exposes the underlying state machine. Access through it is not
// guarded by Context's lock; the executor and the engine use the locked
// wrapper methods below instead.
func (c *Context) Machine() *state.Machine { return c.machine }

func (c *Context) Status() model.SlotStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Current()
}

func (c *Context) Transition(target model.SlotStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Transition(target)
}

func (c *Context) ForceState(target model.SlotStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.ForceState(target)
}

// SetSN sets the serial number. Rejected with InvalidSlotState while the
// slot is Running (§5).
func (c *Context) SetSN(sn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.machine.IsRunning() {
		return model.NewInvalidSlotState(c.machine.Current(), model.SlotIdle, model.SlotPaused, model.SlotCompleted, model.SlotError)
	}
	c.sn = sn
	return nil
}

func (c *Context) ClearSN() error {
	return c.SetSN("")
}

func (c *Context) SN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sn
}

// SetDeviceBinding replaces the slot's device bindings.
func (c *Context) SetDeviceBinding(b model.SlotBinding) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = b
}

func (c *Context) Bindings() model.SlotBinding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindings
}

// CurrentStepIndex returns the index of the step currently executing (or
// about to execute).
func (c *Context) CurrentStepIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentStep
}

func (c *Context) SetCurrentStepIndex(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentStep = i
}

// Reset clears variables, results, error, rewinds timestamps, and resets
// the state machine to Idle. Per invariant (v): a cleared slot has empty
// variables and empty step results.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Variables.Clear()
	c.stepResults = nil
	c.lastError = ""
	c.currentStep = 0
	c.hasStart = false
	c.hasEnd = false
	c.startTimeMs = 0
	c.endTimeMs = 0
	c.machine.Reset()
}

func (c *Context) MarkStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTimeMs = time.Now().UnixMilli()
	c.hasStart = true
	c.hasEnd = false
}

func (c *Context) MarkEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTimeMs = time.Now().UnixMilli()
	c.hasEnd = true
}

// ElapsedMs is wall time since start; zero if not started.
func (c *Context) ElapsedMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasStart {
		return 0
	}
	end := time.Now().UnixMilli()
	if c.hasEnd {
		end = c.endTimeMs
	}
	elapsed := end - c.startTimeMs
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (c *Context) StartTimeMs() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTimeMs, c.hasStart
}

func (c *Context) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = msg
}

func (c *Context) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Context) AddStepResult(r model.StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stepResults = append(c.stepResults, r)
}

func (c *Context) StepResults() []model.StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.StepResult, len(c.stepResults))
	copy(out, c.stepResults)
	return out
}

// GetControlTx returns the sender half of the control channel. The
// sender lives on the context for the lifetime of the slot so FFI-facing
// calls can push signals regardless of whether a worker currently holds
// the receiver.
func (c *Context) GetControlTx() chan<- ControlSignal {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	return c.ctrlTx
}

// TakeControlRx moves the receiver out to the executor; the slot
// temporarily has no receiver until ReinitControlChannel restores one.
func (c *Context) TakeControlRx() <-chan ControlSignal {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	rx := c.ctrlRx
	c.ctrlRx = nil
	c.rxHeldBy = "executor"
	return rx
}

// ReinitControlChannel creates a fresh control channel pair, to be called
// by finish_slot once the executor is done with the prior one. Any
// signals still buffered in the old channel are discarded — consistent
// with §4.F: "signals are lost if no worker is attached."
func (c *Context) ReinitControlChannel() {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	ch := make(chan ControlSignal, controlChannelCapacity)
	c.ctrlTx = ch
	c.ctrlRx = ch
	c.rxHeldBy = ""
}

// SendControl pushes a signal onto the control channel, non-blocking.
// Returns false if the channel is full (signal dropped) — the channel's
// bounded capacity (16) makes this exceedingly unlikely in practice.
func (c *Context) SendControl(sig ControlSignal) bool {
	tx := c.GetControlTx()
	select {
	case tx <- sig:
		return true
	default:
		return false
	}
}
