package contracts

// DeviceInfo describes a MIDI endpoint: an input source for live capture or
// an output destination an engine can drive.
type DeviceInfo struct {
	Index        int    // Position in the platform's device list.
	Name         string // Endpoint name.
	Manufacturer string // Device manufacturer, when the platform reports one.
	EntityName   string // Name of the entity the endpoint belongs to.
}
