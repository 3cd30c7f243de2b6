// Package influxdb records actuation history in InfluxDB v2.
//
// Writes go through the non-blocking batched WriteAPI; failures arrive
// asynchronously on the callback set with SetOnError. The grow daemon
// writes one "actuation" point per action log record, tagged by entity,
// actor and command.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package influxdb
