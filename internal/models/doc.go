// Package models defines provider-neutral data types shared between the
// service clients, the batch engine, and the CLI output layer.
package models
