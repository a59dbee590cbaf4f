// Package testdb provides SurrealDB test environments for the Fete API.
//
// Each call to New connects to the instance named by TEST_DB_HOST and
// TEST_DB_PORT (default localhost:8000), creates a fresh namespace, applies
// every migration in migrations/ and drops the namespace when the test ends.
// When no instance is reachable the test is skipped.
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewMenuRepository(tdb.DB)
//	    ...
//	}
//
// Set FETE_ROOT when running tests from outside the module tree so the
// migrations directory can be found.
package testdb
