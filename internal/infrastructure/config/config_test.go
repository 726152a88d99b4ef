package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard configuration",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				Database: "testdb",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable",
		},
		{
			name: "production configuration",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				User:     "produser",
				Password: "securepass123",
				Database: "proddb",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 user=produser password=securepass123 dbname=proddb sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.ConnectionString(); got != tt.want {
				t.Errorf("DatabaseConfig.ConnectionString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "default dev environment", env: ""},
		{name: "test environment", env: "test"},
		{name: "prod environment", env: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()

			if err := InitConfig(tt.env); err != nil {
				t.Fatalf("InitConfig() error = %v", err)
			}

			if viper.GetString("DB_USER") != "polylink" {
				t.Errorf("InitConfig() DB_USER = %v, want polylink", viper.GetString("DB_USER"))
			}
			if viper.GetString("LOG_FORMAT") != "json" {
				t.Errorf("InitConfig() LOG_FORMAT = %v, want json", viper.GetString("LOG_FORMAT"))
			}
			if viper.GetString("METRICS_NAMESPACE") != "polylink" {
				t.Errorf("InitConfig() METRICS_NAMESPACE = %v, want polylink", viper.GetString("METRICS_NAMESPACE"))
			}
			if filepath.Base(viper.GetString("DB_PATH")) != "polylink.db" {
				t.Errorf("InitConfig() DB_PATH = %v, want */polylink.db", viper.GetString("DB_PATH"))
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		wantErrMsg  string
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "postgres with password",
			setup: func() {
				viper.Set("DB_DRIVER", "postgres")
				viper.Set("DB_PASSWORD", "testpassword")
				viper.Set("DB_HOST", "localhost")
				viper.Set("DB_PORT", 15432)
				viper.Set("DB_NAME", "polylink_dev")
				viper.Set("LOG_LEVEL", "debug")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Database.Driver != "postgres" {
					t.Errorf("Load() Database.Driver = %v, want postgres", cfg.Database.Driver)
				}
				if cfg.Database.Port != 15432 {
					t.Errorf("Load() Database.Port = %v, want 15432", cfg.Database.Port)
				}
				if cfg.Database.Password != "testpassword" {
					t.Errorf("Load() Database.Password = %v, want testpassword", cfg.Database.Password)
				}
				if cfg.Log.Level != "debug" {
					t.Errorf("Load() Log.Level = %v, want debug", cfg.Log.Level)
				}
			},
		},
		{
			name: "missing password",
			setup: func() {
				viper.Set("DB_DRIVER", "mysql")
			},
			wantErrMsg: "DB_PASSWORD is required (set via environment variable or .env file)",
		},
		{
			name: "sqlite needs no password",
			setup: func() {
				viper.Set("DB_DRIVER", "SQLite")
				viper.Set("DB_PATH", "/tmp/graph.db")
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				if cfg.Database.Driver != "sqlite" {
					t.Errorf("Load() Database.Driver = %v, want sqlite", cfg.Database.Driver)
				}
				if cfg.Database.Path != "/tmp/graph.db" {
					t.Errorf("Load() Database.Path = %v, want /tmp/graph.db", cfg.Database.Path)
				}
			},
		},
		{
			name: "unknown driver",
			setup: func() {
				viper.Set("DB_DRIVER", "oracle")
				viper.Set("DB_PASSWORD", "pass")
			},
			wantErrMsg: `unsupported DB_DRIVER "oracle" (expected postgres, mysql or sqlite)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			tt.setup()

			cfg, err := Load()
			if tt.wantErrMsg != "" {
				if err == nil {
					t.Fatalf("Load() error = nil, want %v", tt.wantErrMsg)
				}
				if err.Error() != tt.wantErrMsg {
					t.Errorf("Load() error = %v, want %v", err.Error(), tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}

			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestFindProjectRoot(t *testing.T) {
	root, err := findProjectRoot()
	if err != nil {
		t.Fatalf("findProjectRoot() error = %v, want nil", err)
	}

	// Verify go.mod exists in the returned root
	goModPath := filepath.Join(root, "go.mod")
	if _, err := os.Stat(goModPath); os.IsNotExist(err) {
		t.Errorf("findProjectRoot() returned %v, but go.mod does not exist at %v", root, goModPath)
	}
}
