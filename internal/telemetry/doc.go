// Package telemetry forwards camera session events to NATS and MQTT.
//
// # Subjects
//
// Subjects are dot separated and start with a configurable prefix
// (default "gxcam"). The MQTT sink uses the same paths with "/" separators.
//
//	gxcam.sessions.{device}.state        # session state transitions
//	gxcam.sessions.{device}.frames       # sampled frame metadata
//	gxcam.sessions.{device}.conversion   # color conversion failures
//	gxcam.status                         # request/reply: cached device metrics (NATS only)
//
// Messages are JSON and fire-and-forget. Sinks degrade to no-ops while
// their broker is unreachable, so telemetry never blocks acquisition.
//
// # Debugging
//
//	nats sub "gxcam.sessions.>"
//	nats request gxcam.status ""
//	mosquitto_sub -t 'gxcam/#' -v
//
// An embedded NATS server can be started in-process for single-host
// setups; see EmbeddedServer.
package telemetry
