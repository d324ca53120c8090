// Package notify publishes a summary of every finished analysis run to
// NATS so other services can react to new results. Notifications are
// optional and a publish failure never affects the run.
package notify
