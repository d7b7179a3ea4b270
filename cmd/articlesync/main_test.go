package main

import (
	"errors"
	"io"
	"testing"
)

func TestMutatingCommandsRequireOffline(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "resolve", args: []string{"resolve", "article-1", "--use", "local"}},
		{name: "prune", args: []string{"prune", "article-1", "--keep", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			rootCmd.SetOut(io.Discard)
			rootCmd.SetErr(io.Discard)

			if err := rootCmd.Execute(); !errors.Is(err, errServerMayBeRunning) {
				t.Errorf("Execute() error = %v, want %v", err, errServerMayBeRunning)
			}
		})
	}
}

func TestRequireOffline(t *testing.T) {
	if err := pruneCmd.Flags().Set("offline", "true"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	t.Cleanup(func() { pruneCmd.Flags().Set("offline", "false") })

	if err := requireOffline(pruneCmd, nil); err != nil {
		t.Errorf("requireOffline() error = %v, want nil", err)
	}
}
