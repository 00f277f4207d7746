package model

import "testing"

func TestPublishDropsWhenFull(t *testing.T) {
	job := NewJob("job1", "Acme", "acme")

	// Overfill without a consumer; the worker must never block.
	for i := 0; i < cap(job.Progress)+10; i++ {
		job.Publish(ProgressUpdate{Message: "tick"})
	}
	if got := len(job.Progress); got != cap(job.Progress) {
		t.Errorf("buffered = %d, want full buffer %d", got, cap(job.Progress))
	}
}

func TestPublishTerminalSurvivesFullBuffer(t *testing.T) {
	job := NewJob("job1", "Acme", "acme")

	for i := 0; i < cap(job.Progress); i++ {
		job.Publish(ProgressUpdate{Message: "tick"})
	}
	job.Publish(ProgressUpdate{Complete: true, Message: "done"})

	var sawTerminal bool
	for len(job.Progress) > 0 {
		if update := <-job.Progress; update.Complete {
			sawTerminal = true
		}
	}
	if !sawTerminal {
		t.Fatal("terminal update was dropped from a full buffer")
	}
}

func TestCancelFlag(t *testing.T) {
	job := NewJob("job1", "Acme", "acme")
	if job.IsCancelled() {
		t.Fatal("new job reports cancelled")
	}
	job.Cancel()
	if !job.IsCancelled() {
		t.Fatal("cancel flag not set")
	}
}
