package model

// DeviceInstance is one concrete device bound under a Device Type.
// Uniqueness of ID is scoped to its owning Device Type.
type DeviceInstance struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
}

// DeviceCommand is one named command a plugin exposes for a device type.
// Its shape is opaque to the engine beyond name/description; the host
// plugin interprets the payload convention.
type DeviceCommand struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DeviceType is a template: a family of device instances sharing a plugin
// and a command set.
type DeviceType struct {
	TypeName    string           `json:"type_name"`
	DisplayName string           `json:"display_name"`
	PluginID    string           `json:"plugin_id"`
	Instances   []DeviceInstance `json:"instances"`
	Commands    []DeviceCommand  `json:"commands"`
}

// InstanceByID finds an instance by id within this type, if present.
func (d DeviceType) InstanceByID(id string) (DeviceInstance, bool) {
	for _, inst := range d.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return DeviceInstance{}, false
}

// SlotBinding maps a Device Type name to an ordered sequence of Device
// Instance ids bound for one slot. The executor uses the first id per
// type as the active target; additional ids are reserved for future
// fan-out.
type SlotBinding map[string][]string

// FirstInstance returns the first bound instance id for typeName, if any.
func (b SlotBinding) FirstInstance(typeName string) (string, bool) {
	ids, ok := b[typeName]
	if !ok || len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}
