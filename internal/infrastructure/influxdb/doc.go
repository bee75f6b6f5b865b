// Package influxdb records junction telemetry in InfluxDB 2.x.
//
// Two measurements are written:
//   - junction_state: one point per junction per tick (tags junction_id,
//     control_state, phase_id)
//   - control_events: one point per engine event
//
// The Client is both a tick observer (ObserveTick) and an engine event
// sink (Emit). Writes never block the caller; batches are flushed by the
// InfluxDB client according to influxdb.batch_size and
// influxdb.flush_interval.
package influxdb
