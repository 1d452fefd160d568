package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementEntityAttributes holds one point per attribute change.
const MeasurementEntityAttributes = "entity_attributes"

// WriteEntityAttributes records the numeric and boolean attributes of a
// change as fields of one point tagged with the entity id and type.
// Other attribute values are not time-series data and are skipped. It
// reports whether a point was queued.
func (c *Client) WriteEntityAttributes(entityID, entityType string, attributes map[string]any, ts time.Time) bool {
	if !c.writable() {
		return false
	}

	fields := NumericFields(attributes)
	if len(fields) == 0 {
		return false
	}

	point := write.NewPoint(
		MeasurementEntityAttributes,
		map[string]string{
			"entity_id":   entityID,
			"entity_type": entityType,
		},
		fields,
		ts,
	)
	c.writeAPI.WritePoint(point)
	return true
}

// WritePoint writes a custom point with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.writable() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

// NumericFields converts attribute values to InfluxDB fields. Numbers are
// written as floats so a field keeps one type whatever JSON produced it;
// booleans are kept as booleans.
func NumericFields(attributes map[string]any) map[string]any {
	fields := make(map[string]any)
	for k, v := range attributes {
		switch n := v.(type) {
		case float64:
			fields[k] = n
		case float32:
			fields[k] = float64(n)
		case int:
			fields[k] = float64(n)
		case int64:
			fields[k] = float64(n)
		case int32:
			fields[k] = float64(n)
		case uint:
			fields[k] = float64(n)
		case uint64:
			fields[k] = float64(n)
		case bool:
			fields[k] = n
		}
	}
	return fields
}
