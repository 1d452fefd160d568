// Package influxdb records entity telemetry in InfluxDB v2.
//
// Every attribute change of a configured entity can be written as a point
// in the entity_attributes measurement, tagged with entity_id and
// entity_type. Only numeric and boolean attributes become fields.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEntityAttributes("sensor.temp", "sensor", map[string]any{"value": 21.5}, time.Now())
//
// Writes are batched (batch_size, flush_interval) and non-blocking; write
// failures are delivered through SetOnError. Pause drops writes while the
// hub is in standby.
package influxdb
