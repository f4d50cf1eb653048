package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects the identity, resources, models and feature flags of
// a front end and emits them as one structured event, so a single log line
// shows how a session was configured.
type StartupLogger struct {
	name         string
	version      string
	initDuration time.Duration

	stores   map[string]string
	models   map[string]string
	features map[string]bool
	config   map[string]string
}

// NewStartupLogger creates a StartupLogger for the given binary name
// (e.g. "toon", "toon-web").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		stores:   make(map[string]string),
		models:   make(map[string]string),
		features: make(map[string]bool),
		config:   make(map[string]string),
	}
}

// Version sets the build version baked into the binary.
func (s *StartupLogger) Version(v string) *StartupLogger {
	s.version = v
	return s
}

// Store registers a persistence resource (directory, table or bucket).
func (s *StartupLogger) Store(label, location string) *StartupLogger {
	s.stores[label] = location
	return s
}

// Model registers the remote model used for an operation.
func (s *StartupLogger) Model(operation, name string) *StartupLogger {
	s.models[operation] = name
	return s
}

// Feature registers a boolean feature flag (e.g. "pro", "metrics").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// InitDuration records how long startup took.
func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the value of the named environment variable, or
// defaultVal if the variable is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info()

	app := zerolog.Dict().
		Str("name", s.name).
		Str("goVersion", runtime.Version()).
		Str("os", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Str("logLevel", zerolog.GlobalLevel().String())
	if s.version != "" {
		app = app.Str("version", s.version)
	}
	evt = evt.Dict("app", app)

	if len(s.stores) > 0 {
		evt = evt.Dict("stores", dictFromMap(s.stores))
	}
	if len(s.models) > 0 {
		evt = evt.Dict("models", dictFromMap(s.models))
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
