package soundbank

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

const (
	phdrRecordSize = 38
	presetNameSize = 20
	terminalPreset = "EOP"
)

func isRIFF(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF"
}

type chunk struct {
	id   string
	body []byte
}

// readChunks splits a RIFF body into its sub-chunks. Bodies are padded to an
// even length.
func readChunks(b []byte) ([]chunk, error) {
	var out []chunk
	for len(b) > 0 {
		if len(b) < 8 {
			return nil, fmt.Errorf("soundbank: truncated chunk header (%d bytes)", len(b))
		}
		id := string(b[0:4])
		size := binary.LittleEndian.Uint32(b[4:8])
		b = b[8:]
		if uint64(size) > uint64(len(b)) {
			return nil, fmt.Errorf("soundbank: chunk %q declares %d bytes, %d left", id, size, len(b))
		}
		out = append(out, chunk{id: id, body: b[:size]})
		b = b[size:]
		if size%2 == 1 && len(b) > 0 {
			b = b[1:]
		}
	}
	return out, nil
}

// list returns the sub-chunks of the LIST chunk of the given type.
func list(chunks []chunk, kind string) ([]chunk, bool, error) {
	for _, c := range chunks {
		if c.id != "LIST" || len(c.body) < 4 || string(c.body[:4]) != kind {
			continue
		}
		sub, err := readChunks(c.body[4:])
		return sub, true, err
	}
	return nil, false, nil
}

func find(chunks []chunk, id string) ([]byte, bool) {
	for _, c := range chunks {
		if c.id == id {
			return c.body, true
		}
	}
	return nil, false
}

func parseSF2(data []byte) (*contracts.Bank, error) {
	top, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	if len(top) != 1 || top[0].id != "RIFF" || len(top[0].body) < 4 {
		return nil, fmt.Errorf("soundbank: malformed RIFF container")
	}
	if form := string(top[0].body[:4]); form != "sfbk" {
		return nil, fmt.Errorf("soundbank: RIFF form %q is not a SoundFont", form)
	}
	chunks, err := readChunks(top[0].body[4:])
	if err != nil {
		return nil, err
	}

	bank := &contracts.Bank{}
	if info, ok, err := list(chunks, "INFO"); err != nil {
		return nil, err
	} else if ok {
		if name, ok := find(info, "INAM"); ok {
			bank.Name = cString(name)
		}
	}

	pdta, ok, err := list(chunks, "pdta")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("soundbank: missing pdta list")
	}
	phdr, ok := find(pdta, "phdr")
	if !ok {
		return nil, fmt.Errorf("soundbank: missing phdr chunk")
	}
	if len(phdr)%phdrRecordSize != 0 {
		return nil, fmt.Errorf("soundbank: phdr size %d is not a multiple of %d", len(phdr), phdrRecordSize)
	}

	for off := 0; off+phdrRecordSize <= len(phdr); off += phdrRecordSize {
		rec := phdr[off : off+phdrRecordSize]
		name := cString(rec[:presetNameSize])
		if name == terminalPreset && off+phdrRecordSize == len(phdr) {
			break
		}
		bank.Presets = append(bank.Presets, contracts.Preset{
			Name:    name,
			Program: int(binary.LittleEndian.Uint16(rec[20:22])),
			Bank:    int(binary.LittleEndian.Uint16(rec[22:24])),
		})
	}
	return bank, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
