// Package midiin decodes note events captured by the platform input clients
// in its subpackages.
package midiin

import (
	"time"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// Decode splits a packet of channel voice messages into note events.
// Messages other than note on/off are skipped. Running status is honoured.
func Decode(data []byte) []contracts.NoteEvent {
	var (
		out    []contracts.NoteEvent
		status byte
		now    = uint64(time.Now().UTC().UnixNano())
		i      int
	)
	for i < len(data) {
		b := data[i]
		if b&0x80 != 0 {
			if b >= 0xF8 {
				i++
				continue
			}
			if b >= 0xF0 {
				// System common messages cancel running status; their payload is skipped.
				status = 0
				i++
				for i < len(data) && data[i]&0x80 == 0 {
					i++
				}
				continue
			}
			status = b
			i++
		}
		if status == 0 {
			i++
			continue
		}
		n := dataLen(status)
		if i+n > len(data) {
			break
		}
		cmd := contracts.MIDICommand(status & 0xF0)
		if cmd == contracts.NoteOn || cmd == contracts.NoteOff {
			out = append(out, contracts.NoteEvent{
				Timestamp: now,
				Command:   cmd,
				Channel:   status & 0x0F,
				Note:      data[i] & 0x7F,
				Velocity:  data[i+1] & 0x7F,
			})
		}
		i += n
	}
	return out
}

// FromShortMessage decodes a message packed little-endian into a DWORD,
// as delivered by winmm.
func FromShortMessage(msg uint32) (contracts.NoteEvent, bool) {
	evs := Decode([]byte{byte(msg), byte(msg >> 8), byte(msg >> 16)})
	if len(evs) == 0 {
		return contracts.NoteEvent{}, false
	}
	return evs[0], true
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	default:
		return 2
	}
}
