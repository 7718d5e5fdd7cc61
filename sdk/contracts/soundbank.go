package contracts

// Preset is one instrument of a bank, addressed by bank select and program.
type Preset struct {
	Name    string `yaml:"name"`
	Bank    int    `yaml:"bank"`
	Program int    `yaml:"program"`
}

// Bank is an in-memory instrument bank produced by a BankLoader.
// Banks are immutable once returned by the loader.
type Bank struct {
	Name    string   `yaml:"name"`
	Presets []Preset `yaml:"presets"`
	// Source keeps the raw bytes for engines that load the bank themselves.
	Source []byte `yaml:"-"`
}

// InstrumentNames returns preset names in bank order, truncated to limit.
func (b *Bank) InstrumentNames(limit int) []string {
	if b == nil {
		return nil
	}
	n := len(b.Presets)
	if limit >= 0 && n > limit {
		n = limit
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = b.Presets[i].Name
	}
	return names
}

// BankLoader parses a soundbank byte buffer.
type BankLoader interface {
	Parse(data []byte) (*Bank, error)
}
