package engine

import "github.com/ormasoftchile/catengine/pkg/callback"

func (e *Engine) RegisterEngineTaskCallback(fn callback.EngineTaskFunc) {
	e.gateway.RegisterEngineTask(fn)
}

func (e *Engine) RegisterHostTaskCallback(fn callback.HostTaskFunc) {
	e.gateway.RegisterHostTask(fn)
}

func (e *Engine) RegisterUIUpdateCallback(fn callback.UIUpdateFunc) {
	e.gateway.RegisterUIUpdate(fn)
}

func (e *Engine) RegisterLogCallback(fn callback.LogFunc) {
	e.gateway.RegisterLog(fn)
}
