package events

// Topic constants for domain events emitted by the ordering flow.
const (
	TopicOrderCreated = "order:created"
)

// DefaultTopics returns the topics the worker consumes.
func DefaultTopics() []string {
	return []string{TopicOrderCreated}
}
