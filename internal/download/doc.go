// Package download implements the concurrent download queue: a job
// executor, a resizable worker pool and the Manager that ties them to the
// configuration and to event subscribers.
//
// # Manager
//
// The Manager is the single entry point:
//
//  1. Submit queues a job and returns it immediately
//  2. A worker claims the job in FIFO order and runs the Executor
//  3. The Executor calls the engine and turns its raw progress callbacks
//     into model events
//  4. The Manager fans every event out to its subscribers
//
// # Basic Usage
//
//	mgr, err := download.NewManager(settings, engine.NewYTDLP(), download.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	unsubscribe := mgr.Subscribe(func(ev model.Event) {
//	    fmt.Println(ev.JobID(), ev.Kind())
//	})
//	defer unsubscribe()
//
//	mgr.Start(ctx)
//	defer mgr.Close(context.Background())
//
//	job, err := mgr.Submit("https://example.com/watch?v=1", "")
//	err = mgr.Wait(ctx)
//
// # Concurrency
//
// At most WorkerCount jobs run at once. UpdateConfiguration can grow or
// shrink the pool while jobs are running: new workers start immediately,
// surplus workers exit after their current job. Jobs are never interrupted
// by a resize.
//
// Each job keeps the download and work directories that were configured
// when it was submitted.
//
// # Failures
//
// A job fails when its directories cannot be created (ErrDirectoryCreation)
// or the engine returns an error or panics (ErrEngine). Failures are
// reported only through the job's status; they never stop a worker or
// affect other jobs. There are no retries.
package download
