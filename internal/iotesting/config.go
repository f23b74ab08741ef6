// Package iotesting provides shared test utilities for integration
// tests. This is an internal package for test infrastructure only.
package iotesting

import (
	"os"
	"strconv"

	"github.com/thebinaryforest/ga2/pkg/config"
)

// TestDatabaseName is the database name used for all integration
// tests, so tests never accidentally run against production data.
const TestDatabaseName = "ga2_test"

// GetTestConfig returns a configuration suitable for integration
// tests: defaults, GA2_DATABASE_* environment overrides for CI, and
// the database name forced to TestDatabaseName.
//
// Usage in integration tests:
//
//	func TestSomething(t *testing.T) {
//	    if testing.Short() {
//	        t.Skip("Skipping integration test")
//	    }
//	    cfg := iotesting.GetTestConfig()
//	    // ... use cfg for database operations
//	}
func GetTestConfig() *config.Config {
	cfg := config.New()

	var opts []config.Option
	if host := os.Getenv("GA2_DATABASE_HOST"); host != "" {
		opts = append(opts, config.OptDatabaseHost(host))
	}
	if port := os.Getenv("GA2_DATABASE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			opts = append(opts, config.OptDatabasePort(p))
		}
	}
	if user := os.Getenv("GA2_DATABASE_USER"); user != "" {
		opts = append(opts, config.OptDatabaseUser(user))
	}
	if pass := os.Getenv("GA2_DATABASE_PASSWORD"); pass != "" {
		opts = append(opts, config.OptDatabasePassword(pass))
	}
	cfg.Update(opts)

	// Always use the test database for safety.
	cfg.Database.Database = TestDatabaseName

	return cfg
}

// GetTestDatabaseConfig returns only the database configuration.
func GetTestDatabaseConfig() *config.DatabaseConfig {
	cfg := GetTestConfig()
	return &cfg.Database
}
