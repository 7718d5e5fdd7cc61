package output

// Silence is an endless source of zero samples.
type Silence struct{}

func (Silence) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
