package kafkaconn

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/roadrunner-server/errors"
)

// env carries the container-friendly overrides: KAFKA_SERVERS_LIST,
// KAFKA_GROUP, KAFKA_RETRIES, KAFKA_MULTIPROCESS, KAFKA_ERROR_TOPIC.
type env struct {
	Servers      []string `envconfig:"servers_list"`
	Group        string   `envconfig:"group"`
	Retries      *int     `envconfig:"retries"`
	Multiprocess *bool    `envconfig:"multiprocess"`
	ErrorTopic   string   `envconfig:"error_topic"`
}

// FromEnv layers environment overrides on top of the receiver. Unset
// variables leave the corresponding option untouched.
func (c *Config) FromEnv() error {
	const op = errors.Op("kafka_config_from_env")

	var e env
	if err := envconfig.Process(pluginName, &e); err != nil {
		return errors.E(op, err)
	}

	if len(e.Servers) > 0 {
		c.Servers = e.Servers
	}
	if e.Group != "" {
		c.Group = e.Group
	}
	if e.Retries != nil {
		c.Retries = e.Retries
	}
	if e.Multiprocess != nil {
		c.Multiprocess = *e.Multiprocess
	}
	if e.ErrorTopic != "" {
		c.ErrorTopic = e.ErrorTopic
	}

	return nil
}
