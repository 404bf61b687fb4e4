// Package database manages the PostgreSQL connection pool for the optional
// local transcript archive.
package database
