package actionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/mqtt"
)

// Notifier receives records after they have been written to the log.
type Notifier interface {
	Notify(ctx context.Context, records []Record) error
}

// Notifiers fans records out to each notifier, joining failures.
type Notifiers []Notifier

// Notify implements Notifier.
func (n Notifiers) Notify(ctx context.Context, records []Record) error {
	var errs []error
	for _, x := range n {
		if err := x.Notify(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MQTTPublisher is the subset of mqtt.Client used for action events.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTNotifier publishes each record as JSON on graylogic/grow/action/{entity}.
type MQTTNotifier struct {
	pub MQTTPublisher
	qos byte
}

// NewMQTTNotifier creates an MQTT notifier publishing at qos.
func NewMQTTNotifier(pub MQTTPublisher, qos byte) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, qos: qos}
}

// Notify implements Notifier.
func (n *MQTTNotifier) Notify(_ context.Context, records []Record) error {
	var errs []error
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.pub.Publish(mqtt.Topics{}.GrowAction(r.EntityID), payload, n.qos, false); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", r.EntityID, err))
		}
	}
	return errors.Join(errs...)
}

// PointWriter is the subset of influxdb.Client used for actuation points.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time)
}

// MeasurementActuation is the InfluxDB measurement name.
const MeasurementActuation = "actuation"

// InfluxNotifier writes one actuation point per record. Writes are
// batched by the client and never block.
type InfluxNotifier struct {
	w PointWriter
}

// NewInfluxNotifier creates an InfluxDB notifier.
func NewInfluxNotifier(w PointWriter) *InfluxNotifier {
	return &InfluxNotifier{w: w}
}

// Notify implements Notifier.
func (n *InfluxNotifier) Notify(_ context.Context, records []Record) error {
	for _, r := range records {
		ok := 0
		if r.Status == StatusOK {
			ok = 1
		}
		n.w.WritePointWithTime(MeasurementActuation,
			map[string]string{
				"entity_id": r.EntityID,
				"actor":     r.Actor,
				"command":   r.Command,
			},
			map[string]interface{}{
				"ok":     ok,
				"status": r.Status,
			},
			r.Timestamp,
		)
	}
	return nil
}

// KeyedPublisher is the subset of kafka.Publisher used for action events.
type KeyedPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// KafkaNotifier publishes each record as JSON keyed by entity id, so one
// entity's events stay in order on a single partition.
type KafkaNotifier struct {
	pub KeyedPublisher
}

// NewKafkaNotifier creates a Kafka notifier.
func NewKafkaNotifier(pub KeyedPublisher) *KafkaNotifier {
	return &KafkaNotifier{pub: pub}
}

// Notify implements Notifier.
func (n *KafkaNotifier) Notify(ctx context.Context, records []Record) error {
	var errs []error
	for _, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.pub.Publish(ctx, r.EntityID, payload); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", r.EntityID, err))
		}
	}
	return errors.Join(errs...)
}
