// Package config loads tarmac's runtime configuration.
//
// # Resolution Order
//
// Later sources override earlier ones:
//
//  1. Built-in defaults (see Default)
//  2. The TOML file, ~/.config/tarmac/config.toml unless a path is given;
//     a missing file is not an error
//  3. A .env file in the working directory, if present
//  4. TARMAC_* environment variables, e.g. TARMAC_STORE_BACKEND or
//     TARMAC_GATE_SECRET_HASH. Keys are TARMAC_<SECTION>_<FIELD> with
//     multi-word fields split by underscores; unprefixed names such as
//     PATH are never read.
//
// Values are trimmed, and paths starting with ~ are expanded against the
// user's home directory.
//
// # TOML Format
//
//	[store]
//	backend = "mongo"        # mongo, redis or file
//	fallback = true          # use the local file when the backend is unreachable
//	poll_interval = "2s"
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "tarmac"
//
//	[redis]
//	addr = "127.0.0.1:6379"
//	prefix = "tarmac"
//
//	[file]
//	path = "~/.local/share/tarmac/flights.json"
//
//	[gate]
//	secret_hash = "$2a$10$..."   # or secret = "..."
//	session = "memory"           # memory, redis or badger
//	session_ttl = "12h"
//
//	[log]
//	path = "~/.local/share/tarmac/tarmac.log"
//	level = "info"
//
//	[metrics]
//	addr = "127.0.0.1:9464"      # empty disables /metrics and /healthz
//
// Validate reports settings the application cannot start with, such as an
// unknown backend or a missing secret.
package config
