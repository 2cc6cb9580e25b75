// Package bridge is the worker's handle on the physical device controller.
//
// The controller itself is an external protocol bridge (Somfy, Home Assistant
// and the like) reachable over MQTT. It answers two kinds of exchange:
//
//	request  shades/request/{protocol}/{request_id}   → shades/response/{protocol}/{request_id}
//	command  shades/command/{protocol}/{device_id}    → shades/ack/{protocol}/{device_id}
//
// A request enumerates the devices of a domain. A command lowers, raises or
// sets the level of one device and is complete once the bridge publishes an
// "accepted" acknowledgement; "queued" acks are interim.
//
// Usage:
//
//	b := bridge.NewMQTTBridge(client, bridge.Options{Protocol: "somfy"})
//	conn, err := b.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	devices, err := conn.Devices(ctx, "cover")
package bridge
