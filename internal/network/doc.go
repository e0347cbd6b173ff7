// Package network manages the GeoControl monitoring hierarchy: networks,
// the gateways attached to them and the sensors attached to each gateway.
//
// Networks are addressed by a unique code; gateways and sensors by a MAC
// address that is unique across the whole deployment. Every gateway and
// sensor lookup is scoped to its parent path, so a sensor that exists
// under another gateway is reported as not found.
//
// Deleting a network removes its gateways, their sensors and all stored
// measurements (foreign keys cascade in SQLite).
//
// The package also provides the existence Guard and the sensor Directory
// used by the measurement pipeline.
package network
