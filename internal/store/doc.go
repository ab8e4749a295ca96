// Package store defines the persistence interfaces for the application's
// entities along with the errors store implementations return. Concrete
// implementations live in internal/platform/postgres.
//
// Every store accepts either a database connection or a transaction via
// the DBTX abstraction; multi-store operations are coordinated by services
// using RunInTransaction and each store's WithTx method.
package store
