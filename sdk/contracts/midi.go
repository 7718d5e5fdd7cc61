package contracts

// MIDICommand is the status nibble of a channel voice message.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// ProgramChange is the MIDI command for a Program Change event (0xC0).
	ProgramChange MIDICommand = 0xC0
)

// NoteEvent is a captured channel voice message.
type NoteEvent struct {
	Timestamp uint64      // Capture time in nanoseconds since the Unix epoch.
	Command   MIDICommand // Status nibble with the channel stripped.
	Channel   uint8       // MIDI channel, 0-15.
	Note      uint8       // Key number, 0-127.
	Velocity  uint8       // Velocity, 0-127.
}

// IsNoteOff reports whether the event releases a key, including the
// running-status form of a note-on with zero velocity.
func (e NoteEvent) IsNoteOff() bool {
	return e.Command == NoteOff || (e.Command == NoteOn && e.Velocity == 0)
}

// InputClient captures note events from a hardware MIDI source.
type InputClient interface {
	Stop() error                          // Stops capture and releases the device.
	ListDevices() ([]DeviceInfo, error)   // Lists available input sources.
	SelectDevice(deviceID int) error      // Connects to a source by index.
	StartCapture(events chan<- NoteEvent) // Starts delivering events to the channel.
}
