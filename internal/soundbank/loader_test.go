package soundbank

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func riffChunk(id string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString(id)
	binary.Write(&b, binary.LittleEndian, uint32(len(body)))
	b.Write(body)
	if len(body)%2 == 1 {
		b.WriteByte(0)
	}
	return b.Bytes()
}

func listChunk(kind string, chunks ...[]byte) []byte {
	return riffChunk("LIST", append([]byte(kind), bytes.Join(chunks, nil)...))
}

func phdrRecord(name string, program, bank uint16) []byte {
	rec := make([]byte, phdrRecordSize)
	copy(rec, name)
	binary.LittleEndian.PutUint16(rec[20:], program)
	binary.LittleEndian.PutUint16(rec[22:], bank)
	return rec
}

func buildSF2(name string, presets ...[]byte) []byte {
	phdr := append(bytes.Join(presets, nil), phdrRecord(terminalPreset, 0, 0)...)
	body := append([]byte("sfbk"), listChunk("INFO", riffChunk("INAM", []byte(name+"\x00")))...)
	body = append(body, listChunk("sdta", riffChunk("smpl", []byte{0, 0}))...)
	body = append(body, listChunk("pdta", riffChunk("phdr", phdr))...)
	return riffChunk("RIFF", body)
}

func TestParseSF2(t *testing.T) {
	data := buildSF2("Tiny GM",
		phdrRecord("Strings", 48, 0),
		phdrRecord("Piano", 0, 0),
		phdrRecord("Standard Kit", 0, 128),
	)
	bank, err := NewLoader().Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if bank.Name != "Tiny GM" {
		t.Errorf("name = %q", bank.Name)
	}
	want := []string{"Piano", "Strings", "Standard Kit"}
	got := bank.InstrumentNames(-1)
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if bank.Presets[2].Bank != 128 {
		t.Errorf("drum kit bank = %d", bank.Presets[2].Bank)
	}
	if !bytes.Equal(bank.Source, data) {
		t.Error("source bytes not kept")
	}
}

func TestParseSF2Malformed(t *testing.T) {
	good := buildSF2("x", phdrRecord("Piano", 0, 0))
	tests := map[string][]byte{
		"truncated":  good[:len(good)-10],
		"wrong form": append([]byte("RIFF\x04\x00\x00\x00"), []byte("WAVE")...),
		"no pdta":    riffChunk("RIFF", append([]byte("sfbk"), listChunk("INFO")...)),
		"bad phdr":   riffChunk("RIFF", append([]byte("sfbk"), listChunk("pdta", riffChunk("phdr", make([]byte, 37)))...)),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewLoader().Parse(data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseManifest(t *testing.T) {
	src := []byte(`name: Studio
presets:
  - {name: Bass, bank: 0, program: 33}
  - {name: Pad, bank: 1, program: 89}
  - {name: Piano, bank: 0, program: 0}
`)
	bank, err := NewLoader().Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	names := bank.InstrumentNames(-1)
	if len(names) != 3 || names[0] != "Piano" || names[2] != "Pad" {
		t.Errorf("names = %v", names)
	}
}

func TestManifestGeneralMIDIFallback(t *testing.T) {
	bank, err := NewLoader().Parse([]byte("name: GM\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(bank.Presets) != 128 || bank.Presets[0].Name != "Acoustic Grand Piano" {
		t.Errorf("presets = %d, first %q", len(bank.Presets), bank.Presets[0].Name)
	}

	bank, err = (&Loader{}).Parse([]byte("name: Empty\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(bank.Presets) != 0 {
		t.Errorf("fallback applied with GeneralMIDI off: %d presets", len(bank.Presets))
	}
}

func TestManifestRejected(t *testing.T) {
	tests := map[string]string{
		"unknown field": "name: x\nvolume: 3\n",
		"program range": "presets:\n  - {name: A, program: 128}\n",
		"missing name":  "presets:\n  - {program: 1}\n",
		"not a mapping": "just some text",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewLoader().Parse([]byte(src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUnknownAndEmpty(t *testing.T) {
	if _, err := NewLoader().Parse(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("nil = %v", err)
	}
	if _, err := NewLoader().Parse([]byte{0x4d, 0x54, 0x68, 0x64, 0, 0, 0, 6}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("binary = %v", err)
	}
}
