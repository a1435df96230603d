// Package mqtt provides MQTT client connectivity for forms-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Field sensor gateways (river gauges, rain gauges, grid monitors) sit
// on unreliable links, so they publish readings over MQTT rather than
// HTTP. forms-core subscribes to forms/reading/+ and feeds each payload
// into the rule engine, the same path the REST readings endpoint uses.
//
//	Sensor Gateways -> MQTT Broker -> forms-core -> rule engine
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSensorReadings(), 1,
//	    func(topic string, payload []byte) error {
//	        return ingestReading(topic, payload)
//	    })
package mqtt
