package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoad_WithDefaults(t *testing.T) {
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT", "SERVER_BASE_PATH",
		"STORAGE_DRIVER", "STORAGE_SEED_USER_EMAIL",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_DBNAME",
		"REDIS_HOST", "REDIS_PORT", "REDIS_ENABLED",
		"KAFKA_ENABLED", "KAFKA_BROKERS",
		"RATE_LIMIT_ATTENDEE_REQUESTS_PER_MINUTE", "RATE_LIMIT_USE_REDIS",
		"JWT_SECRET",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "event-management" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "event-management")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Server.BasePath != "/api" {
		t.Errorf("Server.BasePath = %q, want %q", cfg.Server.BasePath, "/api")
	}
	if cfg.Storage.Driver != StorageDriverPostgres {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageDriverPostgres)
	}
	if cfg.Storage.SeedUserEmail != "demo@example.com" {
		t.Errorf("Storage.SeedUserEmail = %q, want %q", cfg.Storage.SeedUserEmail, "demo@example.com")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want %d", cfg.Database.MaxConns, 25)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want %d", cfg.Redis.Port, 6379)
	}
	if cfg.RateLimit.AttendeeRequestsPerMinute != 60 {
		t.Errorf("RateLimit.AttendeeRequestsPerMinute = %d, want %d", cfg.RateLimit.AttendeeRequestsPerMinute, 60)
	}
	if cfg.Kafka.Enabled {
		t.Error("Kafka.Enabled = true, want false")
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Errorf("Kafka.Brokers = %v, want [localhost:9092]", cfg.Kafka.Brokers)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("SERVER_BASE_PATH", "v2/")
	os.Setenv("STORAGE_DRIVER", "MEMORY")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("SERVER_BASE_PATH")
		os.Unsetenv("STORAGE_DRIVER")
		os.Unsetenv("KAFKA_BROKERS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-app")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Server.BasePath != "/v2" {
		t.Errorf("Server.BasePath = %q, want %q", cfg.Server.BasePath, "/v2")
	}
	if cfg.Storage.Driver != StorageDriverMemory {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, StorageDriverMemory)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN() = %q, want %q", dsn, expected)
	}
}

func TestDatabaseConfig_URL(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "events",
		Password: "p@ss",
		DBName:   "events",
		SSLMode:  "disable",
	}

	expected := "pgx5://events:p%40ss@db:5433/events?sslmode=disable"
	if got := cfg.URL(); got != expected {
		t.Errorf("URL() = %q, want %q", got, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if addr := cfg.Addr(); addr != expected {
		t.Errorf("Addr() = %q, want %q", addr, expected)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api", "/api"},
		{"api", "/api"},
		{"/api/", "/api"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeBasePath(tt.in); got != tt.want {
				t.Errorf("normalizeBasePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:      AppConfig{Name: "test", Environment: "development"},
			Server:   ServerConfig{Port: 8080},
			Storage:  StorageConfig{Driver: StorageDriverPostgres},
			Database: DatabaseConfig{Host: "localhost", DBName: "events"},
			JWT:      JWTConfig{Secret: "secret"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing JWT secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"missing database host", func(c *Config) { c.Database.Host = "" }, true},
		{"memory driver ignores database", func(c *Config) {
			c.Storage.Driver = StorageDriverMemory
			c.Database = DatabaseConfig{}
		}, false},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, true},
		{"redis limiter without redis", func(c *Config) { c.RateLimit.UseRedis = true }, true},
		{"default JWT secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = "your-secret-key-change-in-production"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.App.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Storage: StorageConfig{Driver: StorageDriverPostgres},
		Kafka:   KafkaConfig{Enabled: true},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"app name", "server port", "database host", "JWT secret", "kafka brokers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error %q does not mention %q", err, want)
		}
	}
}
