package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server reads from the environment. A .env file
// is loaded first in development; real deployments set these directly.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Cloudinary CloudinaryConfig
	Chat       ChatConfig
	Presence   PresenceConfig
}

type ServerConfig struct {
	Port         string        `envconfig:"SERVER_PORT" default:"8080"`
	Env          string        `envconfig:"SERVER_ENV" default:"development"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
}

type DatabaseConfig struct {
	DSN             string        `envconfig:"DATABASE_DSN" required:"true"`
	MaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"10"`
	MaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"100"`
	ConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	Secret string        `envconfig:"JWT_SECRET" required:"true"`
	Expiry time.Duration `envconfig:"JWT_EXPIRY" default:"72h"`
	Issuer string        `envconfig:"JWT_ISSUER" default:"ecodesk"`
}

type CloudinaryConfig struct {
	CloudName string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	APIKey    string `envconfig:"CLOUDINARY_API_KEY"`
	APISecret string `envconfig:"CLOUDINARY_API_SECRET"`
}

type ChatConfig struct {
	// HistoryLimit caps how many messages one history page carries.
	HistoryLimit int `envconfig:"CHAT_HISTORY_LIMIT" default:"50"`
	// SendQueueSize is the per-connection outbound buffer.
	SendQueueSize      int    `envconfig:"CHAT_SEND_QUEUE_SIZE" default:"256"`
	MaxAttachmentBytes int64  `envconfig:"CHAT_MAX_ATTACHMENT_BYTES" default:"10485760"`
	UploadFolder       string `envconfig:"CHAT_UPLOAD_FOLDER" default:"ecodesk/chat"`
}

type PresenceConfig struct {
	// RecentWindow is how long after their last heartbeat a staff member
	// still counts as recently active.
	RecentWindow time.Duration `envconfig:"PRESENCE_RECENT_WINDOW" default:"2m"`
	PongWait     time.Duration `envconfig:"PRESENCE_PONG_WAIT" default:"60s"`
	WriteWait    time.Duration `envconfig:"PRESENCE_WRITE_WAIT" default:"10s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}
