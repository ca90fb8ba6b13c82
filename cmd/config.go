package cmd

import "time"

const (
	DEF_HISTORY_LIMIT = 20
	// DEF_WATCH_SETTLE groups the burst of events an editor save produces.
	DEF_WATCH_SETTLE = 150 * time.Millisecond
)

const DESCRIPTION = `
warpjs runs JavaScript programs on a cooperative task scheduler.
Scripts spawn tasks, await their results, sleep without blocking
other tasks and fire callbacks on fixed intervals or cron
schedules, all on one thread.
`

const (
	RunDescription = `The run command evaluates a script file and then waits
until every task it spawned has finished and every interval
has been cancelled.

Example:
        warpjs run jobs.js
        warpjs run --timeout 30s --journal ~/.warpjs/journal.db jobs.js
        warpjs run --watch jobs.js

`
	EvalDescription = `The eval command evaluates inline source, prints its
completion value and waits for spawned work to settle.

Example:
        warpjs eval 'spawn(() => 42).await()'

`
	HistoryDescription = `The history command lists the most recent scheduler
events recorded in a journal database.

Example:
        warpjs history --journal ~/.warpjs/journal.db --limit 50

`
)
