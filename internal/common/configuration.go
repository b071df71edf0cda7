/*******************************************************************************
* Copyright (C) 2026 the Titan-AAS Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package common provides configuration management, identifier encoding,
// canonical serialization and the shared error/Result vocabulary for all
// Titan-AAS components. Configuration supports YAML files with environment
// variable overrides following the documented TITAN env contract.
package common

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// Config is the complete configuration for the Titan-AAS runtime.
type Config struct {
	Server     ServerConfig    `mapstructure:"server" json:"server"`
	Database   DatabaseConfig  `mapstructure:"database" json:"database"`
	Mongo      MongoConfig     `mapstructure:"mongo" json:"mongo"`
	Redis      RedisConfig     `mapstructure:"redis" json:"redis"`
	Blob       BlobConfig      `mapstructure:"blob" json:"blob"`
	Events     EventsConfig    `mapstructure:"events" json:"events"`
	Cache      CacheConfig     `mapstructure:"cache" json:"cache"`
	RateLimit  RateLimitConfig `mapstructure:"ratelimit" json:"ratelimit"`
	OIDC       OIDCConfig      `mapstructure:"oidc" json:"oidc"`
	MQTT       MQTTConfig      `mapstructure:"mqtt" json:"mqtt"`
	CorsConfig CorsConfig      `mapstructure:"cors" json:"cors"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	ContextPath string `mapstructure:"contextPath" json:"contextPath"`
}

// DatabaseConfig contains the PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" json:"url"`
	MaxOpenConnections     int    `mapstructure:"maxOpenConnections" json:"maxOpenConnections"`
	MaxIdleConnections     int    `mapstructure:"maxIdleConnections" json:"maxIdleConnections"`
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes" json:"connMaxLifetimeMinutes"`
}

// MongoConfig contains the descriptor registry store parameters.
type MongoConfig struct {
	URI      string `mapstructure:"uri" json:"uri"`
	Database string `mapstructure:"database" json:"database"`
}

// RedisConfig contains the cache / queue / bus connection parameters.
type RedisConfig struct {
	URL string `mapstructure:"url" json:"url"`
}

// BlobConfig selects and parameterizes the blob storage backend.
type BlobConfig struct {
	StorageType     string `mapstructure:"storageType" json:"storageType"` // local, s3, gcs, azure
	InlineThreshold int    `mapstructure:"inlineThreshold" json:"inlineThreshold"`
	ChunkSize       int    `mapstructure:"chunkSize" json:"chunkSize"`
	LocalPrefix     string `mapstructure:"localPrefix" json:"localPrefix"`
	S3Bucket        string `mapstructure:"s3Bucket" json:"s3Bucket"`
	S3Region        string `mapstructure:"s3Region" json:"s3Region"`
	S3Endpoint      string `mapstructure:"s3Endpoint" json:"s3Endpoint"`
	GCSBucket       string `mapstructure:"gcsBucket" json:"gcsBucket"`
	AzureContainer  string `mapstructure:"azureContainer" json:"azureContainer"`
	AzureAccountURL string `mapstructure:"azureAccountURL" json:"azureAccountURL"`
}

// EventsConfig selects the event bus durability level.
type EventsConfig struct {
	Bus string `mapstructure:"bus" json:"bus"` // memory or redis
}

// CacheConfig contains cache TTLs and HTTP cache headers.
type CacheConfig struct {
	MaxAgeSeconds              int `mapstructure:"maxAgeSeconds" json:"maxAgeSeconds"`
	StaleWhileRevalidateSecond int `mapstructure:"staleWhileRevalidateSeconds" json:"staleWhileRevalidateSeconds"`
	EntityTTLSeconds           int `mapstructure:"entityTTLSeconds" json:"entityTTLSeconds"`
	ElementTTLSeconds          int `mapstructure:"elementTTLSeconds" json:"elementTTLSeconds"`
}

// RateLimitConfig contains the sliding-window limiter parameters.
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled" json:"enabled"`
	Requests      int  `mapstructure:"requests" json:"requests"`
	WindowSeconds int  `mapstructure:"windowSeconds" json:"windowSeconds"`
}

// OIDCConfig contains the optional OpenID Connect settings. When Issuer is
// empty the service runs with anonymous full access.
type OIDCConfig struct {
	Issuer     string `mapstructure:"issuer" json:"issuer"`
	Audience   string `mapstructure:"audience" json:"audience"`
	RolesClaim string `mapstructure:"rolesClaim" json:"rolesClaim"`
	JWKSURL    string `mapstructure:"jwksURL" json:"jwksURL"`
}

// MQTTConfig contains the optional MQTT broadcaster settings. When BrokerURL
// is empty the broadcaster is not started.
type MQTTConfig struct {
	BrokerURL   string `mapstructure:"brokerURL" json:"brokerURL"`
	ClientID    string `mapstructure:"clientID" json:"clientID"`
	TopicPrefix string `mapstructure:"topicPrefix" json:"topicPrefix"`
}

// CorsConfig contains the Cross-Origin Resource Sharing policy.
type CorsConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods" json:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders" json:"allowedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials" json:"allowCredentials"`
}

// LoadConfig loads the configuration from an optional YAML file plus
// environment variables. Precedence: environment variables, then the config
// file, then defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvAliases(v)

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	return cfg, nil
}

// bindEnvAliases wires the documented flat environment variable contract
// (DATABASE_URL, REDIS_URL, ...) onto the nested configuration keys.
func bindEnvAliases(v *viper.Viper) {
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("mongo.uri", "MONGO_URI")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("blob.storageType", "BLOB_STORAGE_TYPE")
	_ = v.BindEnv("blob.inlineThreshold", "BLOB_INLINE_THRESHOLD")
	_ = v.BindEnv("events.bus", "EVENT_BUS")
	_ = v.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = v.BindEnv("oidc.audience", "OIDC_AUDIENCE")
	_ = v.BindEnv("oidc.rolesClaim", "OIDC_ROLES_CLAIM")
	_ = v.BindEnv("ratelimit.enabled", "ENABLE_RATE_LIMITING")
	_ = v.BindEnv("ratelimit.requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("ratelimit.windowSeconds", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("cache.maxAgeSeconds", "CACHE_MAX_AGE")
	_ = v.BindEnv("cache.staleWhileRevalidateSeconds", "CACHE_STALE_WHILE_REVALIDATE")
	_ = v.BindEnv("mqtt.brokerURL", "MQTT_BROKER_URL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5004)
	v.SetDefault("server.contextPath", "")

	v.SetDefault("database.url", "postgres://admin:admin123@db:5432/titanaas?sslmode=disable")
	v.SetDefault("database.maxOpenConnections", 50)
	v.SetDefault("database.maxIdleConnections", 50)
	v.SetDefault("database.connMaxLifetimeMinutes", 5)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "titanaas")

	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("blob.storageType", "local")
	v.SetDefault("blob.inlineThreshold", 65536)
	v.SetDefault("blob.chunkSize", 8*1024*1024)
	v.SetDefault("blob.localPrefix", "/var/lib/titanaas/blobs")

	v.SetDefault("events.bus", "memory")

	v.SetDefault("cache.maxAgeSeconds", 30)
	v.SetDefault("cache.staleWhileRevalidateSeconds", 60)
	v.SetDefault("cache.entityTTLSeconds", 3600)
	v.SetDefault("cache.elementTTLSeconds", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.windowSeconds", 60)

	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.audience", "titan-aas")
	v.SetDefault("oidc.rolesClaim", "roles")

	v.SetDefault("mqtt.brokerURL", "")
	v.SetDefault("mqtt.clientID", "titan-aas")
	v.SetDefault("mqtt.topicPrefix", "titan/events")

	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)
}

// PrintConfiguration prints the configuration with credentials redacted.
func PrintConfiguration(cfg *Config) {
	cfgCopy := *cfg
	if cfgCopy.Database.URL != "" {
		cfgCopy.Database.URL = "****"
	}
	if cfgCopy.Mongo.URI != "" {
		cfgCopy.Mongo.URI = "****"
	}
	if cfgCopy.Redis.URL != "" {
		cfgCopy.Redis.URL = "****"
	}

	configJSON, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}
	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

// AddCors configures CORS middleware on the router from the loaded policy.
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
