// Package config manages user-level settings stored at ~/.extpm/config.yaml
// and the runtime tunables read from EXTPM_* environment variables. Settings
// are the small key-value surface the editor host reads and writes (install
// roots, registry URL); tunables control timeouts, TTLs and concurrency.
package config
