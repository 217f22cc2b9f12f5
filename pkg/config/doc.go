// Package config loads simple-account configuration from the environment.
//
// Values come from environment variables via cleanenv struct tags. A .env file
// next to the executable or in the working directory is loaded first with
// godotenv; variables already present in the environment win.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	opts, _ := cfg.AccountConfig.ServiceOptions()
//
// # Keys
//
//   - ACCOUNT_PG_HOST, ACCOUNT_PG_PORT, ACCOUNT_PG_DATABASE, ACCOUNT_PG_USER,
//     ACCOUNT_PG_PASSWORD, ACCOUNT_PG_SCHEMA: PostgreSQL connection
//   - ACCOUNT_PERSISTENCE: postgres, file or memory
//   - ACCOUNT_DATA_DIR: directory of the file store
//   - ACCOUNT_DIGEST_ENCODING: hex or base64
//   - ACCOUNT_DEFAULT_USER_TYPE: user type used when a caller names none
//   - ACCOUNT_DEFAULT_DEPARTMENT_ID, ACCOUNT_BATCH_SIZE, ACCOUNT_MIGRATE
//   - ADMIN_ROLE_NAMES, ADMIN_USERNAME, ADMIN_PASSWORD: admin bootstrap
//   - APP_HOST, APP_PORT: HTTP listener
package config
