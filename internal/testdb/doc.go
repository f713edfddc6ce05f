// Package testdb connects tests to a real PostgreSQL database.
//
// Tests that need one call Open, which skips the test unless a database URL
// is configured, applies the migrations once per process, and closes the
// connection when the test ends. WithTx then runs the test body inside a
// transaction that is always rolled back, so tests can run in parallel
// against the same schema without cleaning up after themselves:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        stores := postgres.NewStores(tx, nil)
//	        ...
//	    })
//	}
//
// The URL is read from SCRY_TEST_DATABASE_URL, then DATABASE_URL.
package testdb
