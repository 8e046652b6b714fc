// Package infra holds the adapters behind the core interfaces: SQL and Redis
// stores, metrics sinks, MQTT notifications, Sentry and import sources.
package infra
