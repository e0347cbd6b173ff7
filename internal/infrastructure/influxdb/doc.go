// Package influxdb mirrors stored measurements into InfluxDB v2.
//
// SQLite stays the source of truth. The client is registered as a
// measurement.Sink, so every batch accepted by the service is copied to the
// sensor_measurements series, tagged with network, gateway and sensor, for
// dashboards and long-range queries.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	svc.AddSink(client)
//
// Writes are batched according to batch_size and flush_interval and never
// block the caller.
package influxdb
