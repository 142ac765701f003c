package kafka_client

type KafkaConfig struct {
	Broker          string
	GroupID         string
	RequestTopic    string
	ResultTopic     string
	TransactionalID string
}

func (c KafkaConfig) withDefaults() KafkaConfig {
	if c.Broker == "" {
		c.Broker = DEFAULT_BROKER
	}
	if c.GroupID == "" {
		c.GroupID = DEFAULT_CONSUMER_GROUP
	}
	if c.RequestTopic == "" {
		c.RequestTopic = KAFKA_TOPIC_SEARCH_REQUESTS
	}
	if c.ResultTopic == "" {
		c.ResultTopic = KAFKA_TOPIC_SEARCH_COMPLETED
	}
	if c.TransactionalID == "" {
		c.TransactionalID = DEFAULT_TRANSACTIONAL_ID
	}
	return c
}
