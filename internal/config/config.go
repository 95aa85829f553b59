// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

// ConnString renders a lib/pq URL.
func (c PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DB,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

type MongoConfig struct {
	URI      string
	Database string
}

type Config struct {
	Port            int
	Backend         string
	PollsCollection string
	UpdatePolicy    ports.UpdatePolicy
	LogLevel        string

	Postgres  PostgresConfig
	Firestore FirestoreConfig
	Mongo     MongoConfig

	JWTSecret      string
	GoogleClientID string
	CookieDomain   string
	RedirectURL    string
	CORSOrigins    []string
}

// Load reads envFiles (".env" when none given) if they exist, then binds the
// environment through viper. Values already present in the environment win
// over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("backend", BackendMemory)
	v.SetDefault("polls_collection", "polls")
	v.SetDefault("update_policy", string(ports.UpdateConfirm))
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("mongo.database", "livepoll")
	v.SetDefault("cors_origins", "*")
	v.SetDefault("redirect_url", "/")

	bindings := map[string]string{
		"port":                  "PORT",
		"backend":               "BACKEND",
		"polls_collection":      "POLLS_COLLECTION",
		"update_policy":         "UPDATE_POLICY",
		"log_level":             "LOG_LEVEL",
		"postgres.host":         "POSTGRES_HOST",
		"postgres.port":         "POSTGRES_PORT",
		"postgres.user":         "POSTGRES_USER",
		"postgres.password":     "POSTGRES_PASSWORD",
		"postgres.db":           "POSTGRES_DB",
		"postgres.sslmode":      "POSTGRES_SSLMODE",
		"firestore.project_id":  "FIRESTORE_PROJECT_ID",
		"firestore.credentials": "GOOGLE_CREDENTIALS_FILE",
		"mongo.uri":             "MONGO_URI",
		"mongo.database":        "MONGO_DATABASE",
		"jwt_secret":            "JWT_SECRET",
		"google_client_id":      "GOOGLE_CLIENT_ID",
		"cookie_domain":         "COOKIE_DOMAIN",
		"redirect_url":          "REDIRECT_URL",
		"cors_origins":          "CORS_ORIGINS",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	policy, ok := ports.ParseUpdatePolicy(v.GetString("update_policy"))
	if !ok {
		return nil, fmt.Errorf("invalid UPDATE_POLICY %q", v.GetString("update_policy"))
	}

	cfg := &Config{
		Port:            v.GetInt("port"),
		Backend:         strings.ToLower(v.GetString("backend")),
		PollsCollection: v.GetString("polls_collection"),
		UpdatePolicy:    policy,
		LogLevel:        v.GetString("log_level"),
		Postgres: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			DB:       v.GetString("postgres.db"),
			SSLMode:  v.GetString("postgres.sslmode"),
		},
		Firestore: FirestoreConfig{
			ProjectID:       v.GetString("firestore.project_id"),
			CredentialsFile: v.GetString("firestore.credentials"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		JWTSecret:      v.GetString("jwt_secret"),
		GoogleClientID: v.GetString("google_client_id"),
		CookieDomain:   v.GetString("cookie_domain"),
		RedirectURL:    v.GetString("redirect_url"),
		CORSOrigins:    splitList(v.GetString("cors_origins")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.DB == "" || c.Postgres.User == "" {
			return errors.New("POSTGRES_DB and POSTGRES_USER are required for the postgres backend")
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}
	if c.PollsCollection == "" {
		return errors.New("POLLS_COLLECTION must not be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
