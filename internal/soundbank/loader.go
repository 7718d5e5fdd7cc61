// Package soundbank turns soundbank bytes into a contracts.Bank.
//
// Two formats are understood: SoundFont 2 files, whose preset headers are
// read from the RIFF "pdta/phdr" chunk, and YAML bank manifests. The sample
// data of a SoundFont is not decoded here; engines that render audio get the
// raw bytes through Bank.Source.
package soundbank

import (
	"bytes"
	"errors"
	"sort"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

var (
	// ErrEmpty is returned for a zero-length buffer.
	ErrEmpty = errors.New("soundbank: empty input")
	// ErrUnknownFormat is returned when the buffer is neither a SoundFont
	// nor a YAML manifest.
	ErrUnknownFormat = errors.New("soundbank: unknown format")
)

// Loader implements contracts.BankLoader for SoundFont 2 and YAML manifests.
type Loader struct {
	// GeneralMIDI fills manifests that declare no presets with the 128
	// General MIDI melodic programs.
	GeneralMIDI bool
}

// NewLoader returns a Loader with General MIDI fallback enabled.
func NewLoader() *Loader {
	return &Loader{GeneralMIDI: true}
}

// Parse implements contracts.BankLoader.
func (l *Loader) Parse(data []byte) (*contracts.Bank, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	var (
		bank *contracts.Bank
		err  error
	)
	switch {
	case isRIFF(data):
		bank, err = parseSF2(data)
	case looksLikeText(data):
		bank, err = parseManifest(data, l.GeneralMIDI)
	default:
		return nil, ErrUnknownFormat
	}
	if err != nil {
		return nil, err
	}

	sortPresets(bank.Presets)
	bank.Source = data
	return bank, nil
}

// sortPresets orders presets by bank then program, as a synthesizer lists them.
func sortPresets(p []contracts.Preset) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Bank != p[j].Bank {
			return p[i].Bank < p[j].Bank
		}
		return p[i].Program < p[j].Program
	})
}

func looksLikeText(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return !bytes.ContainsRune(head, 0)
}
