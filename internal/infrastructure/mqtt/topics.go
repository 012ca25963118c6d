package mqtt

import "fmt"

// Topic prefixes.
const (
	// TopicPrefix is the root of every healthbridge topic.
	TopicPrefix = "healthbridge"

	// TopicPrefixBackfill is the base for backfill state and events.
	TopicPrefixBackfill = "healthbridge/backfill"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "healthbridge/system"
)

// Topics provides builders for healthbridge MQTT topics.
//
//	topics := mqtt.Topics{}
//	client.PublishJSON(topics.BackfillProgress(), report, true)
type Topics struct{}

// BackfillProgress returns the retained range completion topic.
//
// Example: healthbridge/backfill/progress
func (Topics) BackfillProgress() string {
	return fmt.Sprintf("%s/progress", TopicPrefixBackfill)
}

// BackfillConnectivity returns the retained device reachability topic.
//
// Example: healthbridge/backfill/connectivity
func (Topics) BackfillConnectivity() string {
	return fmt.Sprintf("%s/connectivity", TopicPrefixBackfill)
}

// BackfillDay returns the topic for day-imported events.
//
// Example: healthbridge/backfill/day
func (Topics) BackfillDay() string {
	return fmt.Sprintf("%s/day", TopicPrefixBackfill)
}

// BackfillError returns the topic for day-failed events.
//
// Example: healthbridge/backfill/error
func (Topics) BackfillError() string {
	return fmt.Sprintf("%s/error", TopicPrefixBackfill)
}

// BackfillPass returns the topic for pass summaries.
//
// Example: healthbridge/backfill/pass
func (Topics) BackfillPass() string {
	return fmt.Sprintf("%s/pass", TopicPrefixBackfill)
}

// SystemStatus returns the service status topic carrying the LWT.
//
// Example: healthbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllTopics returns a pattern matching all healthbridge topics.
//
// Pattern: healthbridge/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
