package main

import "testing"

func TestMigrateCmd_Subcommands(t *testing.T) {
	cmd := migrateCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"up", "status"} {
		if !names[want] {
			t.Errorf("missing migrate subcommand %q", want)
		}
	}
}

func TestMigrateUp_DefaultDir(t *testing.T) {
	cmd := migrateCmd()
	for _, sub := range cmd.Commands() {
		dir, err := sub.Flags().GetString("dir")
		if err != nil {
			t.Fatalf("%s has no dir flag: %v", sub.Name(), err)
		}
		if dir != "./migrations" {
			t.Errorf("%s: expected default dir ./migrations, got %q", sub.Name(), dir)
		}
	}
}

func TestServeCmd(t *testing.T) {
	if serveCmd().Name() != "serve" {
		t.Error("serve command misnamed")
	}
}
