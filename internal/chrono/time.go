package chrono

import (
	"sync"
	"time"
)

var central *time.Location

func init() {
	var err error
	central, err = time.LoadLocation("America/Chicago")
	if err != nil {
		panic(err)
	}
}

// Central returns a [*time.Location] for America/Chicago, the timezone of
// the appraisal district.
func Central() *time.Location {
	return central
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time, the timezone of the time will default to America/Chicago.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(central)
}

// FixedTime is a TimeAPI that always returns the same instant, advancing by
// Step on every call when Step is set.
type FixedTime struct {
	At   time.Time
	Step time.Duration

	mu sync.Mutex
	n  int64
}

func (f *FixedTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	at := f.At.Add(time.Duration(f.n) * f.Step)
	f.n++
	return at.In(central)
}
