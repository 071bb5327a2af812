package engine

import "github.com/ormasoftchile/catengine/pkg/model"

// AddDeviceType registers dt under dt.TypeName, replacing any existing
// entry with the same name.
func (e *Engine) AddDeviceType(dt model.DeviceType) error {
	return e.guard(func() error {
		if dt.TypeName == "" {
			return model.NewError(model.ErrConfigParse, "type_name must not be empty")
		}
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		e.deviceTypes[dt.TypeName] = dt
		e.persistLocked()
		return nil
	})
}

// AddDeviceInstance appends inst to typeName's instance list.
func (e *Engine) AddDeviceInstance(typeName string, inst model.DeviceInstance) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		dt, ok := e.deviceTypes[typeName]
		if !ok {
			return model.NewError(model.ErrDeviceTypeNotFound, typeName)
		}
		dt.Instances = append(dt.Instances, inst)
		e.deviceTypes[typeName] = dt
		e.persistLocked()
		return nil
	})
}

// RemoveDeviceInstance removes the instance identified by instanceID
// from typeName's instance list.
func (e *Engine) RemoveDeviceInstance(typeName, instanceID string) error {
	return e.guard(func() error {
		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()
		dt, ok := e.deviceTypes[typeName]
		if !ok {
			return model.NewError(model.ErrDeviceTypeNotFound, typeName)
		}
		kept := dt.Instances[:0]
		found := false
		for _, inst := range dt.Instances {
			if inst.ID == instanceID {
				found = true
				continue
			}
			kept = append(kept, inst)
		}
		if !found {
			return model.NewError(model.ErrDeviceInstanceNotFound, instanceID)
		}
		dt.Instances = kept
		e.deviceTypes[typeName] = dt
		e.persistLocked()
		return nil
	})
}

// deviceTypesSnapshot returns a shallow copy of the device-type map for
// use by the executor, which must never hold a live reference into
// engine state across a suspension point (§9).
func (e *Engine) deviceTypesSnapshot() map[string]model.DeviceType {
	out := make(map[string]model.DeviceType, len(e.deviceTypes))
	for k, v := range e.deviceTypes {
		out[k] = v
	}
	return out
}
