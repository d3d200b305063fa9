// Package migrations embeds SQL migration scripts for the SQLite store.
package migrations
