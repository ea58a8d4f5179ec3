package app

import (
	"strings"
	"testing"
)

func TestParseCommand_DefaultsToServe(t *testing.T) {
	cmd, err := ParseCommand([]string{})
	if err != nil {
		t.Fatalf("ParseCommand([]) error = %v", err)
	}
	if cmd != CommandServe {
		t.Errorf("ParseCommand([]) = %q, want %q", cmd, CommandServe)
	}
}

func TestParseCommand_KnownCommands(t *testing.T) {
	tests := []struct {
		arg  string
		want Command
	}{
		{"serve", CommandServe},
		{"worker", CommandWorker},
		{"migrate", CommandMigrate},
		{"healthcheck", CommandHealthcheck},
		{"help", CommandHelp},
		{"-h", CommandHelp},
		{"--help", CommandHelp},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			cmd, err := ParseCommand([]string{tt.arg})
			if err != nil {
				t.Fatalf("ParseCommand([%s]) error = %v", tt.arg, err)
			}
			if cmd != tt.want {
				t.Errorf("ParseCommand([%s]) = %q, want %q", tt.arg, cmd, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownReturnsErrorWithUsage(t *testing.T) {
	_, err := ParseCommand([]string{"serv"})
	if err == nil {
		t.Fatal("ParseCommand([serv]) should return an error")
	}
	if !strings.Contains(err.Error(), `"serv"`) || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("error = %v, want the unknown command and usage", err)
	}
}

func TestParseCommand_IgnoresExtraArgs(t *testing.T) {
	cmd, err := ParseCommand([]string{"worker", "--flag", "value"})
	if err != nil {
		t.Fatalf("ParseCommand error = %v", err)
	}
	if cmd != CommandWorker {
		t.Errorf("ParseCommand([worker --flag value]) = %q, want %q", cmd, CommandWorker)
	}
}
