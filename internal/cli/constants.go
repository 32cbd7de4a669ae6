package cli

// TabWidth is the padding between columns in tabular output.
const TabWidth = 2

// Number of arguments expected by two-argument commands.
const (
	setCommandArgs   = 2
	cacheKeyArgs     = 2
	cacheWriteArgs   = 3
	cacheFetchArgs   = 3
	snapshotPathArgs = 1
)
