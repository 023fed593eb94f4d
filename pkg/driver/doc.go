/*
Package driver implements the Animation Driver.

The driver orchestrates one run for one session: it resets the Graph Session
Store, adds the query root, pulls steps one at a time from a StepSource and
appends each of them after a pacing delay. Observers are notified through
domain.RunHooks after every appended step and on every state transition.

# State Machine

	Idle -> Running -> Completed | Failed | Cancelled
	(any terminal state) -> Running on the next Start

Only one run may be active per driver; a second Start fails fast with
domain.ErrAlreadyRunning. Cancellation is cooperative and takes effect at the
next step boundary, so every node is always written together with its edge
and log entry.

# Usage

	d := driver.New(graph.New(), mock.New(),
		driver.WithPacer(driver.TimerPacer{}),
		driver.WithLogger(logger),
	)

	if err := d.Start(ctx, domain.RunRequest{Query: "What is consciousness?", Steps: 5}); err != nil {
		return err
	}
	result, err := d.Wait(ctx)
*/
package driver
