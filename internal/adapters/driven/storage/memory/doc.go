// Package memory provides in-memory implementations of the driven storage
// ports. They back the "memory" storage backend and the service tests;
// nothing survives a restart.
package memory
