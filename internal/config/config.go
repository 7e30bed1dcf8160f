package config

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageDriverLocal      = "local"
	StorageDriverS3         = "s3"
	StorageDriverCloudinary = "cloudinary"

	defaultMaxUploadBytes = 10 << 20
)

type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	DB struct {
		URI  string `mapstructure:"uri"`
		Name string `mapstructure:"name"`
	} `mapstructure:"db"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret      string        `mapstructure:"jwt_secret"`
		TokenLifespan  time.Duration `mapstructure:"token_lifespan"`
		PasswordHasher string        `mapstructure:"password_hasher"`
	} `mapstructure:"auth"`
	Storage struct {
		Driver         string `mapstructure:"driver"`
		UploadDir      string `mapstructure:"upload_dir"`
		PublicPath     string `mapstructure:"public_path"`
		MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	} `mapstructure:"storage"`
	S3 struct {
		Bucket    string `mapstructure:"bucket"`
		Region    string `mapstructure:"region"`
		Endpoint  string `mapstructure:"endpoint"`
		KeyPrefix string `mapstructure:"key_prefix"`
		Profile   string `mapstructure:"profile"`
	} `mapstructure:"s3"`
	Cloudinary struct {
		CloudName string `mapstructure:"cloud_name"`
		ApiKey    string `mapstructure:"api_key"`
		ApiSecret string `mapstructure:"api_secret"`
		Folder    string `mapstructure:"folder"`
	} `mapstructure:"cloudinary"`
	Tracing struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	} `mapstructure:"tracing"`
}

// LoadConfig reads .env, an optional config.yaml from the given paths (the
// working directory by default) and the process environment. A missing
// database connection string or JWT secret is an error.
func LoadConfig(paths ...string) (cfg Config, err error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	if err := godotenv.Load(filepath.Join(paths[0], ".env")); err != nil {
		log.Println("warning: .env file not found, use environment only.")
	}

	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read environment only. Error: %v", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.port", "5000")
	v.SetDefault("app.env", "development")
	v.SetDefault("db.name", "wellness")
	v.SetDefault("auth.token_lifespan", 72*time.Hour)
	v.SetDefault("auth.password_hasher", "bcrypt")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.public_path", "/uploads")
	v.SetDefault("storage.max_upload_bytes", defaultMaxUploadBytes)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.key_prefix", "profile-photos")
	v.SetDefault("cloudinary.folder", "profile-photos")

	v.BindEnv("app.port", "PORT", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("db.uri", "MONGO_URI", "DB_DSN")
	v.BindEnv("db.name", "MONGO_DB")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.token_lifespan", "TOKEN_LIFESPAN")
	v.BindEnv("auth.password_hasher", "PASSWORD_HASHER")
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.upload_dir", "UPLOAD_DIR")
	v.BindEnv("storage.max_upload_bytes", "MAX_UPLOAD_BYTES")
	v.BindEnv("s3.bucket", "S3_BUCKET")
	v.BindEnv("s3.region", "S3_REGION")
	v.BindEnv("s3.endpoint", "S3_ENDPOINT")
	v.BindEnv("s3.key_prefix", "S3_KEY_PREFIX")
	v.BindEnv("s3.profile", "AWS_PROFILE")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("tracing.otlp_endpoint", "OTLP_ENDPOINT")

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitBrokers(cfg.Kafka.Brokers)

	err = cfg.Validate()
	return
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.URI) == "" {
		return errors.New("MONGO_URI is not defined")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is not defined")
	}
	if c.Auth.TokenLifespan <= 0 {
		return fmt.Errorf("token lifespan must be positive, got %s", c.Auth.TokenLifespan)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Storage.MaxUploadBytes)
	}
	switch c.Storage.Driver {
	case StorageDriverLocal:
	case StorageDriverS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 storage driver")
		}
	case StorageDriverCloudinary:
		if c.Cloudinary.CloudName == "" {
			return errors.New("CLOUDINARY_CLOUD_NAME is required for the cloudinary storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// splitBrokers accepts both a YAML list and a comma separated env value.
func splitBrokers(in []string) []string {
	var out []string
	for _, item := range in {
		for _, b := range strings.Split(item, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}
