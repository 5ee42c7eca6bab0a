// Package qosd bootstraps and maintains the Quality-of-Service configuration
// of a network switch.
//
// # Overview
//
// qosd writes the QoS configuration of the switch into a transactional
// configuration store and keeps it consistent:
//
//	┌─────────────────┐       ┌─────────────────┐
//	│   qosd CLI      │       │  Status API     │
//	│   (cobra)       │       │  (Echo REST)    │
//	└────────┬────────┘       └────────┬────────┘
//	         │                         │
//	┌────────▼─────────────────────────▼────────┐
//	│  Bootstrapper / ProfileStore / Integrity  │
//	└────────────────────┬──────────────────────┘
//	                     │
//	            ┌────────▼────────┐
//	            │  Config Store   │
//	            │  (bbolt)        │
//	            └─────────────────┘
//
// # Core Features
//
// Bootstrap:
//   - Trust mode (qos_trust=none)
//   - CoS map (8 rows) and DSCP map (64 rows) with their factory values
//   - "default" and read-only "factory-default" queue scheduling profiles
//     (queue 7 strict, queues 6..0 weighted round robin)
//   - "default" and "factory-default" queue mapping profiles
//     (local priority N on queue N)
//
// Maintenance:
//   - Trust mode changes
//   - Restoring a profile from its factory-default copy
//   - Integrity scans for duplicate profiles, orphaned rows, broken
//     references and invalid records, with dry-run repair plans
//
// # Usage
//
// Bootstrap a store:
//
//	qosd init --store /var/lib/qosd/qosd.db
//
// Inspect it:
//
//	qosd show system
//	qosd show dscp --output yaml
//
// Serve the read-only status API:
//
//	qosd serve --config configs/config.yaml
//
// # Configuration
//
// Configuration can be provided via:
//   - YAML file (config.yaml)
//   - Environment variables (QOSD_ prefix)
//   - .env file
//
// Example configuration:
//
//	store:
//	  path: /var/lib/qosd/qosd.db
//	  bootstrap_on_start: true
//	server:
//	  host: 127.0.0.1
//	  port: 8096
//	logging:
//	  level: info
//	  format: json
//
// # API Endpoints
//
//   - GET  /health                            - Liveness and record count
//   - GET  /api/v1/system                     - System record and trust mode
//   - GET  /api/v1/stats                      - Records per kind
//   - GET  /api/v1/profiles/schedule[/:name]  - Queue scheduling profiles
//   - GET  /api/v1/profiles/queue[/:name]     - Queue mapping profiles
//   - GET  /api/v1/maps/cos                   - Live CoS map
//   - GET  /api/v1/maps/dscp                  - Live DSCP map
//   - GET  /api/v1/integrity/health           - Store health score
//   - POST /api/v1/integrity/scan             - Integrity scan
//   - POST /api/v1/integrity/plan             - Repair plan (not executed)
//
// # Development
//
// Run tests:
//
//	go test ./...
//
// Build the binary:
//
//	go build -o qosd ./cmd/qosd
package qosd
