package agent

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/samuelfneumann/gorl/environment"
)

// Type identifies a registered agent configuration.
type Type string

// Config represents a configuration for creating an agent.
type Config interface {
	// CreateAgent creates the agent that the Config describes for
	// the given environment.
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument is a valid agent for
	// the Config.
	ValidAgent(a Agent) bool

	// Validate returns an error describing the first invalid field
	// of the Config, if any.
	Validate() error

	// Type returns the type of the Config.
	Type() Type
}

// registeredConfigs maps agent types to the concrete Config struct
// that holds their settings. Configs register themselves in their
// package's init function.
var registeredConfigs map[Type]reflect.Type = make(map[Type]reflect.Type)

// Register registers a Config under its Type so that it can be
// constructed from JSON. The Config's exported fields are populated
// from the same JSON object that carries the type tag.
func Register(c Config) {
	t := reflect.Indirect(reflect.ValueOf(c)).Type()
	registeredConfigs[c.Type()] = t
}

// FromJSON constructs a Config from a JSON object. The object's
// "type" field selects which registered Config to unmarshal into,
// and the remaining fields populate that Config.
func FromJSON(data []byte) (Config, error) {
	var tag struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("fromjson: could not read type tag: %v",
			err)
	}

	concrete, ok := registeredConfigs[tag.Type]
	if !ok {
		return nil, fmt.Errorf("fromjson: no agent registered for "+
			"type %q", tag.Type)
	}

	value := reflect.New(concrete)
	if err := json.Unmarshal(data, value.Interface()); err != nil {
		return nil, fmt.Errorf("fromjson: could not unmarshal %v "+
			"configuration: %v", tag.Type, err)
	}

	config, ok := value.Interface().(Config)
	if !ok {
		config, ok = reflect.Indirect(value).Interface().(Config)
	}
	if !ok {
		return nil, fmt.Errorf("fromjson: registered type for %v "+
			"does not implement Config", tag.Type)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("fromjson: %v", err)
	}
	return config, nil
}
