// Package actionlog records every dispatch attempt, one row per entity.
//
// Records are append-only. The primary sink is one CSV file per entity
// under a directory; an SQLite action_log table can be added alongside it
// with Multi. Columns are never reordered: new fields go at the end.
//
//	timestamp,entity_id,actor,command,status,metadata,id
//
// Metadata is written as sorted k=v pairs joined with ';'. The characters
// '%', ';' and '=' inside keys or values are percent-escaped.
//
// Notifiers (MQTT, InfluxDB, Kafka) receive the same records after they
// are durably written. A notifier failure never affects the durable log.
package actionlog
