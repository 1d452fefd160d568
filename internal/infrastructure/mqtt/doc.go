// Package mqtt connects the driver to the device bridge over an MQTT broker.
//
// The driver publishes entity commands and mirrors entity changes; the
// bridge publishes attribute updates that the driver applies to its
// entities. Topic layout is described on Topics.
//
// The client reconnects with exponential backoff, restores subscriptions
// after a reconnect and registers a Last Will so the broker marks the
// driver offline if it disappears:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllEntityStates(), client.QoS(), onState)
package mqtt
