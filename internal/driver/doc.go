// Package driver is the device side of the hub driver.
//
// It turns the configured entity catalogue into entities on the protocol
// engine and connects them to the devices through an MQTT bridge:
//
//	hub command  -> entity handler -> <prefix>/entity/<id>/command
//	<prefix>/entity/<id>/state -> pool merge -> entity_change to the hub
//	                                         -> <prefix>/entity/<id>/change
//	                                         -> InfluxDB entity_attributes
//
// The setup Wizard persists the values entered during driver setup in
// SQLite, and the last known attributes of every entity are kept as
// snapshots so a restarted driver reports them before the devices do.
package driver
