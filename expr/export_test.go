package expr

// Exported for the external tests that compare against package query.
var (
	TestATLContext = func() Context { return atlContext() }
	TestBTLContext = func() Context { return btlContext() }
	TestBallotRow  = ballotRow
)
