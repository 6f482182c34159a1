package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// portTimeout bounds port enumeration; CoreMIDI can hang.
const portTimeout = 3 * time.Second

// ListOutPorts returns the output port names.
func ListOutPorts() ([]string, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(outs))
	for i, p := range outs {
		names[i] = p.String()
	}
	return names, nil
}

func outPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(portTimeout):
		return nil, fmt.Errorf("listing MIDI ports timed out after %v", portTimeout)
	}
}

// OpenOut opens the first output port whose name contains name
// (case-insensitive) and returns a sender for it.
func OpenOut(name string) (SendFunc, string, error) {
	outs, err := outPorts()
	if err != nil {
		return nil, "", err
	}
	want := strings.ToLower(name)
	for _, p := range outs {
		if !strings.Contains(strings.ToLower(p.String()), want) {
			continue
		}
		send, err := gomidi.SendTo(p)
		if err != nil {
			return nil, "", fmt.Errorf("open MIDI port %q: %w", p.String(), err)
		}
		return send, p.String(), nil
	}
	return nil, "", fmt.Errorf("no MIDI output port matching %q", name)
}

// Close shuts the MIDI driver down.
func Close() {
	gomidi.CloseDriver()
}
