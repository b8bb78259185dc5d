// Package config handles loading and validating the Postgres MCP server
// configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The database connection string carries credentials; set it via the
//     DATABASE_URL environment variable rather than the config file
//   - If a config file is used, it should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("PGMCP_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Transactions.TimeoutMS)
package config
