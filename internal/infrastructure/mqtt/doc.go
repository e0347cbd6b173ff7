// Package mqtt connects GeoControl to an MQTT broker.
//
// Gateways that cannot call the HTTP API publish measurement batches to
//
//	<prefix>/networks/<networkCode>/gateways/<gatewayMac>/sensors/<sensorMac>/measurements
//
// The Ingestor decodes them and hands them to the measurement service,
// which applies the same hierarchy checks as the REST endpoint. Every
// stored batch, whichever way it arrived, is announced on
//
//	<prefix>/events/networks/<networkCode>/gateways/<gatewayMac>/sensors/<sensorMac>/stored
//
// by the EventPublisher sink. The client keeps a retained online/offline
// document on <prefix>/system/status, backed by a last will for crashes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	qos := byte(cfg.MQTT.QoS)
//	svc.AddSink(mqtt.NewEventPublisher(client, client.Topics(), qos))
//	if err := mqtt.NewIngestor(svc, client.Topics(), qos).Start(client); err != nil {
//	    return err
//	}
//
// TLS should be enabled (broker.tls) for anything beyond local development.
package mqtt
