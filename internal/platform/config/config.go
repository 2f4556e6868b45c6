package config

// Config is the process-wide server configuration, resolved once at startup
// and immutable for the life of the server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Notify NotifyConfig `yaml:"notify"`
	Web    WebConfig    `yaml:"web"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// NotifyConfig holds dispatcher-level options.
type NotifyConfig struct {
	// SoundFile overrides the default notification sound lookup.
	SoundFile string `yaml:"sound_file"`
	// SpeechUserConfig / SpeechSystemConfig override the layered speech
	// config file locations, mainly for tests.
	SpeechUserConfig   string `yaml:"speech_user_config"`
	SpeechSystemConfig string `yaml:"speech_system_config"`
}

// WebConfig controls the optional static status page and the websocket
// event stream.
type WebConfig struct {
	StaticDir string `yaml:"static_dir"`
	// EventStream toggles the /ws push endpoint.
	EventStream bool `yaml:"event_stream"`
	// EventWorkers sizes the event bus worker pool.
	EventWorkers int `yaml:"event_workers"`
}
