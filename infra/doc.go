// Package infra contains technical adapters such as CSV readers and
// writers, metrics exporters and the MQTT publisher. These packages
// should depend only on the interfaces defined in the core packages.
package infra
