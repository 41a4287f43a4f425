package notify

import (
	"fmt"
	"io"
	"os"
)

// Alerter plays the audible cue for a newly pushed event.
type Alerter interface {
	Alert() error
}

// BellAlerter rings the terminal bell.
type BellAlerter struct {
	out io.Writer
}

func NewBellAlerter(out io.Writer) *BellAlerter {
	if out == nil {
		out = os.Stdout
	}
	return &BellAlerter{out: out}
}

func (a *BellAlerter) Alert() error {
	if _, err := a.out.Write([]byte("\a")); err != nil {
		return fmt.Errorf("failed to ring terminal bell: %w", err)
	}
	return nil
}
