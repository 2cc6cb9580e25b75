// Package mqtt provides the MQTT bus client for the shade worker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - TLS with a private CA and optional client certificate
//   - Publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament for offline detection
//
// # Architecture
//
// The worker never talks to shade motors directly. A protocol bridge owns
// the hardware and listens on the bus:
//
//	shade worker ↔ MQTT broker ↔ protocol bridge ↔ motors
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeAcks("somfy"), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
