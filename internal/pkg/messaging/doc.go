// Package messaging publishes and consumes events without tying callers to a
// broker. Drivers: in-process (local), NATS, NSQ, Kafka and Google Pub/Sub.
//
// Each driver maps the common options to its own notion of a consumer group:
// a NATS queue group, an NSQ channel, a Kafka group id or a Pub/Sub
// subscription. The local driver delivers every message to every consumer.
package messaging
