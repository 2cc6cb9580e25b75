package mqtt

import "fmt"

// Topic prefixes.
//
// Bridge topics use the flat scheme shades/{category}/{protocol}/{id}, where
// id is a device ID for commands and acks and a request ID for requests and
// responses.
const (
	TopicPrefix       = "shades"
	TopicPrefixCore   = "shades/core"
	TopicPrefixSystem = "shades/system"
)

// Topics provides builders for the worker's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.BridgeCommand("somfy", "den")
//	// Returns: "shades/command/somfy/den"
type Topics struct{}

// BridgeCommand returns the topic for a command to one device.
//
// Example: shades/command/somfy/den
func (Topics) BridgeCommand(protocol, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, protocol, deviceID)
}

// BridgeAck returns the topic a bridge acknowledges a device command on.
//
// Example: shades/ack/somfy/den
func (Topics) BridgeAck(protocol, deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, protocol, deviceID)
}

// BridgeRequest returns the topic for a request to a bridge.
//
// Example: shades/request/somfy/6f1c...
func (Topics) BridgeRequest(protocol, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefix, protocol, requestID)
}

// BridgeResponse returns the topic a bridge answers a request on.
//
// Example: shades/response/somfy/6f1c...
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefix, protocol, requestID)
}

// AllBridgeAcks matches every command acknowledgement from one bridge.
func (Topics) AllBridgeAcks(protocol string) string {
	return fmt.Sprintf("%s/ack/%s/+", TopicPrefix, protocol)
}

// AllBridgeResponses matches every request response from one bridge.
func (Topics) AllBridgeResponses(protocol string) string {
	return fmt.Sprintf("%s/response/%s/+", TopicPrefix, protocol)
}

// CoreAutomationFired returns the topic a completed firing is announced on.
//
// Example: shades/core/automation/Evening/fired
func (Topics) CoreAutomationFired(automation string) string {
	return fmt.Sprintf("%s/automation/%s/fired", TopicPrefixCore, automation)
}

// SystemStatus returns the retained worker online/offline topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
