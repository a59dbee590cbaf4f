// Package config manages application configuration for the Fete API.
//
// Configuration comes from environment variables. An optional .env file
// (path from ENV_FILE, default ".env") is loaded first and never overrides
// variables already set in the process.
//
//	cfg, err := config.Load()
//	if err == nil {
//		err = cfg.Validate()
//	}
//
// # Configuration Groups
//
//   - ServerConfig: port, timeouts, CORS origins, log level
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: HS256 secret, issuer and token lifetime
//   - RedisConfig: menu cache and idempotency store
//   - KafkaConfig: domain event publishing
//   - UploadsConfig: image directory and public URL prefix
//   - RateLimitConfig: per-client request limits
//
// # Environment Variables
//
//	SERVER_PORT        - HTTP server port (default: 8080)
//	SERVER_ENV         - development, production or test
//	LOG_LEVEL          - debug, info, warn or error
//	DB_HOST, DB_PORT   - SurrealDB address
//	JWT_SECRET         - token signing secret, at least 16 characters
//	REDIS_ENABLED      - use Redis for caching and idempotency
//	KAFKA_ENABLED      - publish domain events to Kafka
//	UPLOAD_DIR         - where uploaded images are written
package config
