// Package model defines the core data structures shared by the download
// manager, its observers and the presentation layers.
//
// # Job
//
// Job describes one download request. Its identity, source and directories
// are fixed when the job is submitted; status and transfer metrics change
// while a worker runs it:
//
//	job := model.NewJob("https://example.com/watch?v=1", "", outDir, workDir)
//	fmt.Println(job.DisplayTitle()) // falls back to the source URL
//	fmt.Println(job.Status())       // queued
//
// # Status
//
// Status moves strictly forward:
//
//	queued -> running -> completed
//	                  -> failed
//
// Use CanTransition to check a move and Job.Transition to apply one.
//
// # Events
//
// Event is a tagged variant delivered to subscribers. Switch on the concrete
// type (or on Kind) to handle it:
//
//	switch e := ev.(type) {
//	case model.JobAdded:
//	    fmt.Println("added", e.Job.ID)
//	case model.ProgressChanged:
//	    fmt.Printf("%s %d%%\n", e.ID, e.Percent)
//	}
package model
