package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Database. Either a plain connection string or the name of a Secret
	// Manager secret holding one (see secrets.go).
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`
	DBSecretName       string `envconfig:"DB_SECRET_NAME"`

	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	// Object storage for course attachments
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Attachment ceilings, enforced per course before any upload. The size
	// ceiling is aggregate bytes across a course's attachment list.
	CourseFilesMax     int   `envconfig:"COURSE_FILES_MAX" default:"100"`
	CourseFilesSizeMax int64 `envconfig:"COURSE_FILES_SIZE_MAX" default:"134217728"`

	// Judged-record ingestion over Pub/Sub
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost  string `envconfig:"PUBSUB_EMULATOR_HOST"`
	RecordsSubscription string `envconfig:"RECORDS_SUBSCRIPTION" default:"records-judged"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsLocalDev reports whether we are running against local emulators.
func (c *Config) IsLocalDev() bool {
	return c.Environment == "development"
}
