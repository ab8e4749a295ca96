// Package postgres provides PostgreSQL implementations of the store
// interfaces using the pgx stdlib driver. Stores accept either a database
// connection or a transaction through store.DBTX and translate PostgreSQL
// error codes into the sentinel errors defined in the store package.
package postgres
