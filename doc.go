// Package localhub is the notification backend for localhub community sites.

// The binaries live under cmd/ (server, migrate, seed, cli). The packages
// are organized as:

// - internal/notifications: recipient resolution, dedup, inbox and rendering
// - internal/delivery: bounded queue with email, web push, Kafka and live adapters
// - internal/social: activities, comments, messages and follows that raise notifications
// - internal/handlers: HTTP handlers for the inbox, push subscriptions and preferences
// - internal/websocket: live inbox connections
// - internal/repository: GORM data access
// - internal/models: data models and database schemas
// - internal/auth: sessions and password hashing
// - internal/middleware: tenant resolution, auth, rate limiting, metrics, tracing
// - internal/cache: Redis backed unread counts
// - internal/kernel: dependency wiring and shutdown

// See the individual package documentation for detailed API reference.
package localhub
