package bridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// Command names understood by the bridge.
const (
	CommandLower    = "lower"
	CommandRaise    = "raise"
	CommandSetValue = "set_value"
)

// ActionListDevices is the request action for device enumeration.
const ActionListDevices = "list_devices"

// CommandMessage is published to shades/command/{protocol}/{device_id}.
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	DeviceID   string         `json:"device_id"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Source     string         `json:"source"`
}

// AckStatus is the acknowledgement status of a command.
type AckStatus string

// Acknowledgement statuses.
const (
	// AckAccepted means the device accepted the command.
	AckAccepted AckStatus = "accepted"

	// AckQueued means the bridge holds the command; a final ack follows.
	AckQueued AckStatus = "queued"

	// AckFailed means the device or bridge rejected the command.
	AckFailed AckStatus = "failed"

	// AckTimeout means the bridge gave up waiting for the device.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is published by the bridge to shades/ack/{protocol}/{device_id}.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError describes a failed or timed-out command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *AckError) Error() string {
	if e == nil {
		return "no detail"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RequestMessage is published to shades/request/{protocol}/{request_id}.
type RequestMessage struct {
	RequestID  string         `json:"request_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ResponseMessage is published by the bridge to
// shades/response/{protocol}/{request_id}.
type ResponseMessage struct {
	RequestID string          `json:"request_id"`
	Timestamp time.Time       `json:"timestamp"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ResponseError  `json:"error,omitempty"`
}

// ResponseError describes a failed request.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error.
func (e *ResponseError) Error() string {
	if e == nil {
		return "no detail"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// DeviceList is the data of a successful list_devices response.
type DeviceList struct {
	Devices []DeviceInfo `json:"devices"`
}
