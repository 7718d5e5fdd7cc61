package soundbank

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// manifest is the YAML form of a bank:
//
//	name: Studio Kit
//	presets:
//	  - {name: Grand Piano, bank: 0, program: 0}
type manifest struct {
	Name    string             `yaml:"name"`
	Presets []contracts.Preset `yaml:"presets"`
}

func parseManifest(data []byte, generalMIDI bool) (*contracts.Bank, error) {
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}

	for i, p := range m.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("soundbank: preset %d has no name", i)
		}
		if p.Program < 0 || p.Program > 127 {
			return nil, fmt.Errorf("soundbank: preset %q program %d outside 0-127", p.Name, p.Program)
		}
		if p.Bank < 0 || p.Bank > 16383 {
			return nil, fmt.Errorf("soundbank: preset %q bank %d outside 0-16383", p.Name, p.Bank)
		}
	}
	if len(m.Presets) == 0 && generalMIDI {
		m.Presets = GeneralMIDIPresets()
	}
	return &contracts.Bank{Name: m.Name, Presets: m.Presets}, nil
}
