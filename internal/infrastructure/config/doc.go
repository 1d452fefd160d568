// Package config loads the driver configuration (config.yaml) and the
// driver metadata document (driver.json).
//
// Values are layered: built-in defaults, then the YAML file, then the
// environment. The hub integration variables keep the names every hub
// sets for its drivers:
//
//	UC_INTEGRATION_INTERFACE   server.interface
//	UC_INTEGRATION_HTTP_PORT   server.port (also wins over the metadata port)
//	UC_DISABLE_MDNS_PUBLISH    true disables discovery
//
// Driver-specific overrides use HUBDRIVER_*: LOG_LEVEL, DATABASE_PATH,
// MQTT_HOST, MQTT_USERNAME, MQTT_PASSWORD and INFLUXDB_TOKEN. Keep broker
// and InfluxDB credentials in the environment rather than the file.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	md, err := config.LoadMetadata(cfg.Driver.MetadataFile)
package config
