// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests skip themselves when no test database URL is configured,
// and every test runs inside a transaction that is rolled back afterwards.
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        store := postgres.NewTaskStore(tx)
//	        // ...
//	    })
//	}
package testdb
