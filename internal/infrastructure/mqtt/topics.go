package mqtt

import "fmt"

// TopicPrefix is the root of every grow topic.
const TopicPrefix = "graylogic/grow"

// Topics builds grow topic names.
//
//	topics := mqtt.Topics{}
//	topics.GrowAction("plant-01") // graylogic/grow/action/plant-01
type Topics struct{}

// GrowAction carries one action log record for an entity.
func (Topics) GrowAction(entityID string) string {
	return fmt.Sprintf("%s/action/%s", TopicPrefix, entityID)
}

// AllGrowActions matches every entity's action topic.
func (Topics) AllGrowActions() string {
	return TopicPrefix + "/action/+"
}

// GrowCommand receives manual commands such as {"command":"pump_on"}.
func (Topics) GrowCommand() string {
	return TopicPrefix + "/command"
}

// GrowStatus is the retained online/offline topic, also used for the LWT.
func (Topics) GrowStatus() string {
	return TopicPrefix + "/status"
}
