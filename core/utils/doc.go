// Package utils provides common utility functions for db-sync.
// It holds the scalar conversions used to read driver values (aggregates,
// primary keys, timestamps) without caring which engine produced them.
package utils
