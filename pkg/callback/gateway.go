// Package callback implements the Callback Gateway (§4.I): a thin adapter
// from internal engine calls to host-registered callbacks. In the
// original C-ABI design this holds raw function pointers plus an opaque
// user_data pointer; here the host registers ordinary Go closures, which
// already close over whatever state they need, so there is no user_data
// parameter to thread through.
package callback

import (
	"sync"
	"time"
)

// EngineTaskFunc dispatches a device-bound request. Returns 0 if the
// host accepted the task (any other code fails the task with
// ExecutionError per §7).
type EngineTaskFunc func(slotID uint32, taskID uint64, deviceType, deviceAddress, pluginID string, action string, payload []byte, timeoutMs int64) int32

// HostTaskFunc dispatches a host-controlled, single-shot task with
// opaque JSON params.
type HostTaskFunc func(slotID uint32, taskID uint64, taskName string, params []byte, timeoutMs int64) int32

// UIUpdateFunc receives a UI snapshot JSON payload (§6).
type UIUpdateFunc func(snapshotJSON []byte)

// LogFunc receives a diagnostic log line. Level is one of
// "debug","info","warn","error".
type LogFunc func(timestampMs int64, level, source, message string)

// Gateway holds the four registered callbacks. The zero value has none
// registered; invoking a missing engine-task/host-task callback returns
// a synthetic non-zero code, and ui-update/log become no-ops. Safe for
// concurrent registration and invocation.
type Gateway struct {
	mu         sync.RWMutex
	engineTask EngineTaskFunc
	hostTask   HostTaskFunc
	uiUpdate   UIUpdateFunc
	log        LogFunc
}

func NewGateway() *Gateway {
	return &Gateway{}
}

func (g *Gateway) RegisterEngineTask(fn EngineTaskFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engineTask = fn
}

func (g *Gateway) RegisterHostTask(fn HostTaskFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hostTask = fn
}

func (g *Gateway) RegisterUIUpdate(fn UIUpdateFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.uiUpdate = fn
}

func (g *Gateway) RegisterLog(fn LogFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = fn
}

// synthetic non-zero return code used when a required callback is not
// registered — distinguishes "host rejected" (any nonzero) from "no host
// present to ask" without inventing a new contract on the wire.
const noCallbackRegisteredCode int32 = -1

// CallEngineTask invokes the engine-task callback, or returns a
// synthetic failure code if none is registered.
func (g *Gateway) CallEngineTask(slotID uint32, taskID uint64, deviceType, deviceAddress, pluginID, action string, payload []byte, timeoutMs int64) int32 {
	g.mu.RLock()
	fn := g.engineTask
	g.mu.RUnlock()
	if fn == nil {
		return noCallbackRegisteredCode
	}
	return fn(slotID, taskID, deviceType, deviceAddress, pluginID, action, payload, timeoutMs)
}

// CallHostTask invokes the host-task callback, or returns a synthetic
// failure code if none is registered.
func (g *Gateway) CallHostTask(slotID uint32, taskID uint64, taskName string, params []byte, timeoutMs int64) int32 {
	g.mu.RLock()
	fn := g.hostTask
	g.mu.RUnlock()
	if fn == nil {
		return noCallbackRegisteredCode
	}
	return fn(slotID, taskID, taskName, params, timeoutMs)
}

// PushUIUpdate invokes the ui-update callback; a no-op if none registered.
func (g *Gateway) PushUIUpdate(snapshotJSON []byte) {
	g.mu.RLock()
	fn := g.uiUpdate
	g.mu.RUnlock()
	if fn != nil {
		fn(snapshotJSON)
	}
}

// EmitLog invokes the log callback with the current time; a no-op if
// none registered. Fire-and-forget, not on the critical path (§7).
func (g *Gateway) EmitLog(level, source, message string) {
	g.mu.RLock()
	fn := g.log
	g.mu.RUnlock()
	if fn != nil {
		fn(time.Now().UnixMilli(), level, source, message)
	}
}
