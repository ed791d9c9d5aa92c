package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "KAFKA_BROKER", "KAFKA_ORDER_TOPIC", "SEED_PASSWORD", "MIGRATIONS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Kafka.Broker != "" || cfg.Kafka.OrderTopic != "order-status" {
		t.Errorf("unexpected kafka defaults: %+v", cfg.Kafka)
	}
	if cfg.App.SeedPassword != "test" || cfg.App.Migrations {
		t.Errorf("unexpected app defaults: %+v", cfg.App)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/m.db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-number")

	cfg := Load()
	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "/tmp/m.db" {
		t.Errorf("sqlite settings not applied: %+v", cfg.Database)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("expected port 6543, got %d", cfg.Database.Port)
	}
	if !cfg.App.Migrations {
		t.Error("expected migrations enabled")
	}
	if cfg.Server.ReadTimeout != 15 {
		t.Errorf("expected fallback timeout 15, got %d", cfg.Server.ReadTimeout)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "meals", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=meals sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	if got := d.URL(); got != "postgres://u:p@db:5432/meals?sslmode=disable" {
		t.Errorf("URL() = %q", got)
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example ,,https://b.example")
	cfg := Load()
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %q", cfg.Server.CORSOrigins)
	}
}
