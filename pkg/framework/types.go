package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// TimeSource provides the time for polling and controlling logic.
type TimeSource interface {
	Time() time.Time
}

// TimeFunc is the func form of TimeSource.
type TimeFunc func() time.Time

// Time implements TimeSource.
func (f TimeFunc) Time() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock TimeSource = TimeFunc(time.Now)

// Message is consumed by controllers within one loop iteration.
type Message interface {
	// NewMessage creates an empty message.
	NewMessage() Message
}

// Controller defines the abstract controlling logic.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	TimeSource
	// Context retrieves context.Context.
	Context() context.Context
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves messages of this iteration. Messages added
	// at one priority level are visible to the following levels.
	Messages() MessageStore
	// TriggerNext schedules another iteration right after this one.
	TriggerNext()
}

// MessageStore provides read/write access to a list of messages.
type MessageStore interface {
	// ProcessMessages visits messages in order, removing taken ones.
	ProcessMessages(func(msg Message) (taken bool))
	// AddMessages appends messages to the store.
	AddMessages(msgs ...Message)
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefined priority levels.
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is for sensors producing readings.
	PrLvSense = PrLvHigh
	// PrLvControl is for logic consuming readings.
	PrLvControl = PrLvNormal
	// PrLvPublish is for sinks forwarding readings out of the loop.
	PrLvPublish = PrLvLow
)
