// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level enumerations: channel concurrency types, wait strategy
// selectors and the dispatcher lifecycle state.

package api

import (
	"fmt"
	"strings"
)

// ChannelType selects the concurrency discipline of worker channels.
type ChannelType int

const (
	// SPSC allows a single producer goroutine per channel.
	SPSC ChannelType = iota
	// MPSC allows any number of concurrent producers per channel.
	MPSC
)

func (t ChannelType) String() string {
	switch t {
	case SPSC:
		return "spsc"
	case MPSC:
		return "mpsc"
	default:
		return fmt.Sprintf("ChannelType(%d)", int(t))
	}
}

// UnmarshalText parses "spsc" or "mpsc" (case-insensitive).
func (t *ChannelType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "spsc":
		*t = SPSC
	case "mpsc":
		*t = MPSC
	default:
		return fmt.Errorf("unknown channel type %q", text)
	}
	return nil
}

// ProducerWaitType selects the producer-side wait strategy.
type ProducerWaitType int

const (
	// ProducerSpinning retries in a busy loop while the channel is full.
	ProducerSpinning ProducerWaitType = iota
)

func (t ProducerWaitType) String() string {
	switch t {
	case ProducerSpinning:
		return "spinning"
	default:
		return fmt.Sprintf("ProducerWaitType(%d)", int(t))
	}
}

// UnmarshalText parses "spinning".
func (t *ProducerWaitType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "spinning":
		*t = ProducerSpinning
	default:
		return fmt.Errorf("unknown producer wait strategy %q", text)
	}
	return nil
}

// ConsumerWaitType selects the consumer-side wait strategy.
type ConsumerWaitType int

const (
	// ConsumerBlocking parks the consumer until data is signalled.
	ConsumerBlocking ConsumerWaitType = iota
	// ConsumerSpinning busy-waits for data.
	ConsumerSpinning
)

func (t ConsumerWaitType) String() string {
	switch t {
	case ConsumerBlocking:
		return "blocking"
	case ConsumerSpinning:
		return "spinning"
	default:
		return fmt.Sprintf("ConsumerWaitType(%d)", int(t))
	}
}

// UnmarshalText parses "blocking" or "spinning".
func (t *ConsumerWaitType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "blocking":
		*t = ConsumerBlocking
	case "spinning":
		*t = ConsumerSpinning
	default:
		return fmt.Errorf("unknown consumer wait strategy %q", text)
	}
	return nil
}

// State is the dispatcher lifecycle state. Transitions only move forward:
// StateNotStarted -> StateStarted -> StateTerminated.
type State int32

const (
	StateNotStarted State = iota
	StateStarted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarted:
		return "started"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
