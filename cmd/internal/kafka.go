package internal

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/envvar"
)

//KafkaProducer ...
type KafkaProducer struct {
	Producer *kafka.Producer
	Topic    string
}

//KafkaConsumer ...
type KafkaConsumer struct {
	Consumer *kafka.Consumer
}

//NewKafkaProducer instantiates the Kafka producer using configuration defined in environment variables.
func NewKafkaProducer(conf *envvar.Configuration) (*KafkaProducer, error) {
	host, topic, err := kafkaHostTopic(conf)
	if err != nil {
		return nil, err
	}

	config := kafka.ConfigMap{
		"bootstrap.servers": host,
	}

	client, err := kafka.NewProducer(&config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "kafka.NewProducer")
	}

	return &KafkaProducer{
		Producer: client,
		Topic:    topic,
	}, nil
}

//NewKafkaConsumer instantiates the Kafka consumer using configuration defined in environment variables.
//Offsets are committed manually, once a message is applied.
func NewKafkaConsumer(conf *envvar.Configuration, groupID string) (*KafkaConsumer, error) {
	host, topic, err := kafkaHostTopic(conf)
	if err != nil {
		return nil, err
	}

	config := kafka.ConfigMap{
		"bootstrap.servers":  host,
		"group.id":           groupID,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	}

	client, err := kafka.NewConsumer(&config)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "kafka.NewConsumer")
	}

	if err := client.Subscribe(topic, nil); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "client.Subscribe")
	}

	return &KafkaConsumer{
		Consumer: client,
	}, nil
}

func kafkaHostTopic(conf *envvar.Configuration) (string, string, error) {
	host, err := conf.Get("KAFKA_HOST")
	if err != nil {
		return "", "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_HOST")
	}

	topic, err := conf.GetDefault("KAFKA_TOPIC", "documents")
	if err != nil {
		return "", "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_TOPIC")
	}

	return host, topic, nil
}
