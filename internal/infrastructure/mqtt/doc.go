// Package mqtt publishes healthbridge status to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained state topics (backfill progress, device connectivity)
//   - Event topics (day imported, day failed, pass summary)
//   - Last Will and Testament (LWT) on healthbridge/system/status
//
// The connection is optional. When the broker is unreachable the service
// keeps importing; publishes simply fail with ErrNotConnected and are
// logged by the caller.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.BackfillConnectivity(),
//	    map[string]any{"online": true}, true)
package mqtt
