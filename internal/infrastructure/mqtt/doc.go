// Package mqtt connects Gray Logic Grow to an MQTT broker.
//
// The daemon publishes one JSON event per action log record on
// graylogic/grow/action/{entity} and listens on graylogic/grow/command for
// manual commands. Its online/offline state is retained on
// graylogic/grow/status, with a Last Will covering crashes.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Publish(mqtt.Topics{}.GrowAction("plant-01"), payload, 1, false)
package mqtt
