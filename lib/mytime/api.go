package mytime

import "time"

// ExampleTime is a fixed moment for tests.
var ExampleTime = time.Date(2025, time.November, 3, 9, 15, 0, 0, time.UTC)

//go:generate mockgen -source=api.go -package mytime -destination nower_mock.go Nower
type Nower interface {
	Now() time.Time
}

type RealNower struct{}

func (n RealNower) Now() time.Time {
	return time.Now().UTC()
}
