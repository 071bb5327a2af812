package callback

import "testing"

func TestCallEngineTaskWithoutRegistrationReturnsSyntheticFailure(t *testing.T) {
	gw := NewGateway()
	code := gw.CallEngineTask(0, 1, "psu", "addr", "mock", "query", nil, 100)
	if code == 0 {
		t.Error("expected a nonzero synthetic code when no callback is registered")
	}
}

func TestCallEngineTaskInvokesRegisteredCallback(t *testing.T) {
	gw := NewGateway()
	var gotAction string
	gw.RegisterEngineTask(func(slotID uint32, taskID uint64, deviceType, deviceAddress, pluginID, action string, payload []byte, timeoutMs int64) int32 {
		gotAction = action
		return 0
	})
	code := gw.CallEngineTask(0, 1, "psu", "addr", "mock", "query", nil, 100)
	if code != 0 {
		t.Errorf("expected code 0, got %d", code)
	}
	if gotAction != "query" {
		t.Errorf("expected action %q, got %q", "query", gotAction)
	}
}

func TestPushUIUpdateNoOpWithoutRegistration(t *testing.T) {
	gw := NewGateway()
	gw.PushUIUpdate([]byte(`{}`)) // must not panic
}

func TestEmitLogInvokesRegisteredCallback(t *testing.T) {
	gw := NewGateway()
	var gotMessage string
	gw.RegisterLog(func(timestampMs int64, level, source, message string) {
		gotMessage = message
	})
	gw.EmitLog("info", "test", "hello")
	if gotMessage != "hello" {
		t.Errorf("expected message %q, got %q", "hello", gotMessage)
	}
}
