package cron

import (
	"testing"
)

func TestRegistry_Register_Jobs(t *testing.T) {
	ran := false
	Register("test:registry", "@every 1h", func(args ...string) {
		ran = true
	})
	defer Unregister("test:registry")

	j, ok := Jobs()["test:registry"]
	if !ok {
		t.Fatal("test:registry not in Jobs()")
	}
	if j.Schedule != "@every 1h" {
		t.Errorf("Schedule = %q, want @every 1h", j.Schedule)
	}
	j.Run()
	if !ran {
		t.Error("Run did not execute")
	}
}

func TestRegistry_Register_DuplicatePanics(t *testing.T) {
	Register("dupjob", "@hourly", func(...string) {})
	defer Unregister("dupjob")
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on duplicate")
		}
	}()
	Register("dupjob", "@daily", func(...string) {})
}
