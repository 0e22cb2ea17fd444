package encoder

import "errors"

// FakePins is a test double that returns scripted data and switch line
// levels. Each read consumes the next scripted level; when a sequence is
// exhausted the last level repeats, so a stable pin only needs one entry.
type FakePins struct {
	// DataSeq contains scripted data line levels.
	DataSeq []Level

	// SwitchSeq contains scripted switch line levels.
	SwitchSeq []Level

	// DataErr, if set, will be returned by DataValue.
	DataErr error

	// SwitchErr, if set, will be returned by SwitchValue.
	SwitchErr error

	dataIdx int
	swIdx   int
}

// NewFakePins creates a FakePins with the given scripted levels.
func NewFakePins(data, sw []Level) *FakePins {
	return &FakePins{DataSeq: data, SwitchSeq: sw}
}

// DataValue returns the next scripted data level.
func (f *FakePins) DataValue() (Level, error) {
	if f.DataErr != nil {
		return 0, f.DataErr
	}
	if len(f.DataSeq) == 0 {
		return 0, errors.New("no data levels scripted")
	}
	v := f.DataSeq[f.dataIdx]
	if f.dataIdx < len(f.DataSeq)-1 {
		f.dataIdx++
	}
	return v, nil
}

// SwitchValue returns the next scripted switch level.
func (f *FakePins) SwitchValue() (Level, error) {
	if f.SwitchErr != nil {
		return 0, f.SwitchErr
	}
	if len(f.SwitchSeq) == 0 {
		return 0, errors.New("no switch levels scripted")
	}
	v := f.SwitchSeq[f.swIdx]
	if f.swIdx < len(f.SwitchSeq)-1 {
		f.swIdx++
	}
	return v, nil
}

// Reset rewinds both sequences to the beginning.
func (f *FakePins) Reset() {
	f.dataIdx = 0
	f.swIdx = 0
}
