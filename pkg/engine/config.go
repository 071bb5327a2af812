package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ormasoftchile/catengine/pkg/model"
	"github.com/ormasoftchile/catengine/pkg/slot"
	"github.com/ormasoftchile/catengine/pkg/storage"
	"go.uber.org/zap"
)

// persistedConfig is the §4.H persistence blob shape: device_types keyed
// by name (type_name reconstructed from the key on load, since the map
// key is authoritative and the embedded TypeName field is redundant on
// disk).
type persistedConfig struct {
	SlotCount   int                           `json:"slot_count"`
	DeviceTypes map[string]model.DeviceType   `json:"device_types"`
	TestSteps   []model.TestStep              `json:"test_steps"`
	SlotBindings map[string]model.SlotBinding `json:"slot_bindings"`
}

// SetDataPath creates the directory if missing, opens a persistent bbolt
// store at <path>/engine.db, and eagerly loads and applies any saved
// configuration — including slot count, per §4.H.
func (e *Engine) SetDataPath(path string) error {
	return e.guard(func() error {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return model.NewError(model.ErrStorage, fmt.Sprintf("create data path: %v", err))
		}
		store, err := storage.Open(filepath.Join(path, "engine.db"))
		if err != nil {
			return model.NewError(model.ErrStorage, err.Error())
		}
		e.slotsMu.Lock()
		e.store = store
		e.slotsMu.Unlock()

		blob, found, err := store.Load(storage.ConfigKey)
		if err != nil {
			return model.NewError(model.ErrStorage, err.Error())
		}
		if !found {
			return nil
		}
		return e.applyPersistedConfig(blob)
	})
}

func (e *Engine) applyPersistedConfig(blob []byte) error {
	var pc persistedConfig
	if err := json.Unmarshal(blob, &pc); err != nil {
		return model.NewError(model.ErrConfigParse, err.Error())
	}

	e.slotsMu.Lock()
	defer e.slotsMu.Unlock()

	for name, dt := range pc.DeviceTypes {
		dt.TypeName = name
		e.deviceTypes[name] = dt
	}
	e.steps = pc.TestSteps
	if pc.SlotCount > 0 && pc.SlotCount != len(e.slots) {
		if pc.SlotCount < len(e.slots) {
			e.slots = e.slots[:pc.SlotCount]
		} else {
			for i := len(e.slots); i < pc.SlotCount; i++ {
				e.slots = append(e.slots, slot.New(uint32(i)))
			}
		}
	}
	for slotIDStr, binding := range pc.SlotBindings {
		id, ok := parseSlotID(slotIDStr)
		if !ok || int(id) >= len(e.slots) {
			continue
		}
		e.slots[id].SetDeviceBinding(binding)
	}
	return nil
}

// persistLocked saves the current configuration if a store is attached.
// Callers must hold slotsMu (at least for write) when calling this.
func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}
	pc := persistedConfig{
		SlotCount:    len(e.slots),
		DeviceTypes:  e.deviceTypes,
		TestSteps:    e.steps,
		SlotBindings: e.slotBindingsSnapshot(),
	}
	blob, err := json.Marshal(pc)
	if err != nil {
		e.logger.Error("marshal config for persistence", zap.Error(err))
		return
	}
	if err := e.store.Save(storage.ConfigKey, blob); err != nil {
		e.logger.Error("save config", zap.Error(err))
	}
}

// LoadConfig merges device types, then test steps, then slot bindings,
// in that order (§6), from a single JSON payload shaped like
// persistedConfig. If a Validator is attached, each device type and test
// step is schema-validated before merge.
func (e *Engine) LoadConfig(raw []byte) error {
	return e.guard(func() error {
		var pc persistedConfig
		if err := json.Unmarshal(raw, &pc); err != nil {
			return model.NewError(model.ErrConfigParse, err.Error())
		}

		if e.validator != nil {
			for name, dt := range pc.DeviceTypes {
				dtJSON, _ := json.Marshal(dt)
				if err := e.validator.ValidateDeviceType(dtJSON); err != nil {
					return model.NewError(model.ErrConfigParse, fmt.Sprintf("device type %q: %v", name, err))
				}
			}
			for _, step := range pc.TestSteps {
				stepJSON, _ := json.Marshal(step)
				if err := e.validator.ValidateTestStep(stepJSON); err != nil {
					return model.NewError(model.ErrConfigParse, fmt.Sprintf("step %d: %v", step.StepID, err))
				}
			}
		}

		e.slotsMu.Lock()
		defer e.slotsMu.Unlock()

		for name, dt := range pc.DeviceTypes {
			dt.TypeName = name
			e.deviceTypes[name] = dt
		}
		for _, step := range pc.TestSteps {
			e.mergeStepLocked(step)
		}
		for slotIDStr, binding := range pc.SlotBindings {
			id, ok := parseSlotID(slotIDStr)
			if !ok || int(id) >= len(e.slots) {
				continue
			}
			e.slots[id].SetDeviceBinding(binding)
		}
		e.persistLocked()
		return nil
	})
}

func (e *Engine) mergeStepLocked(step model.TestStep) {
	for i, existing := range e.steps {
		if existing.StepID == step.StepID {
			e.steps[i] = step
			return
		}
	}
	e.steps = append(e.steps, step)
}

func parseSlotID(s string) (uint32, bool) {
	var id uint64
	if s == "" {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		id = id*10 + uint64(c-'0')
	}
	return uint32(id), true
}

// configJSONResponse is the §6 get_config_json response shape, distinct
// from the on-disk persistedConfig shape: device_types is an array, and
// a derived "devices" index maps type_name to its instance list.
type configJSONResponse struct {
	SlotCount   int                         `json:"slot_count"`
	DeviceTypes []deviceTypeJSON            `json:"device_types"`
	Devices     map[string][]model.DeviceInstance `json:"devices"`
	TestSteps   []model.TestStep            `json:"test_steps"`
	SlotBindings map[string]model.SlotBinding `json:"slot_bindings"`
}

type deviceTypeJSON struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	PluginID  string                 `json:"plugin_id"`
	Instances []model.DeviceInstance `json:"instances"`
	Commands  []model.DeviceCommand  `json:"commands"`
}

// GetConfigJSON returns the full configuration in the §6 response shape.
func (e *Engine) GetConfigJSON() ([]byte, error) {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()

	resp := configJSONResponse{
		SlotCount:    len(e.slots),
		Devices:      make(map[string][]model.DeviceInstance, len(e.deviceTypes)),
		TestSteps:    e.stepsSnapshot(),
		SlotBindings: e.slotBindingsSnapshot(),
	}
	for name, dt := range e.deviceTypes {
		resp.DeviceTypes = append(resp.DeviceTypes, deviceTypeJSON{
			ID: name, Name: dt.DisplayName, PluginID: dt.PluginID,
			Instances: dt.Instances, Commands: dt.Commands,
		})
		resp.Devices[name] = dt.Instances
	}
	return json.Marshal(resp)
}

// GetTestStepsJSON returns the current step list as JSON.
func (e *Engine) GetTestStepsJSON() ([]byte, error) {
	e.slotsMu.RLock()
	defer e.slotsMu.RUnlock()
	return json.Marshal(e.stepsSnapshot())
}
