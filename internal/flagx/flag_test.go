package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-c", "--config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "leadbook.json", "-r", "ws://localhost:8000/rpc"},
			allowed: allowed,
			want:    []string{"-c", "leadbook.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-f", "leadbook.db"},
			allowed: allowed,
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "order preserved when both forms present",
			args:    []string{"--config=first.json", "-c", "second.json", "-q", "5"},
			allowed: allowed,
			want:    []string{"--config=first.json", "-c", "second.json"},
		},
		{
			name:    "unknown flags and positionals dropped",
			args:    []string{"-q", "5", "--drift=3", "sync"},
			allowed: allowed,
			want:    []string{},
		},
		{
			name:    "trailing flag without value kept",
			args:    []string{"-c"},
			allowed: allowed,
			want:    []string{"-c"},
		},
		{
			name:    "dash-starting token is not consumed as a value",
			args:    []string{"-c", "--config=alt.json"},
			allowed: allowed,
			want:    []string{"-c", "--config=alt.json"},
		},
		{
			name:    "equals form may carry a dash-starting value",
			args:    []string{"--config=--odd.json"},
			allowed: []string{"--config"},
			want:    []string{"--config=--odd.json"},
		},
		{
			name:    "several allowed flags kept together",
			args:    []string{"-r", "ws://db:8000/rpc", "-c", "leadbook.json", "--other", "x"},
			allowed: []string{"-c", "-r"},
			want:    []string{"-r", "ws://db:8000/rpc", "-c", "leadbook.json"},
		},
		{
			name:    "repeated flag preserved in order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: allowed,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"leadbook", "-c", "/etc/leadbook/short.json"}
		assert.Equal(t, "/etc/leadbook/short.json", JsonConfigFlags())
	})

	t.Run("long flag", func(t *testing.T) {
		os.Args = []string{"leadbook", "-config", "/etc/leadbook/long.json"}
		assert.Equal(t, "/etc/leadbook/long.json", JsonConfigFlags())
	})

	t.Run("unrelated flags ignored", func(t *testing.T) {
		os.Args = []string{"leadbook", "-q", "5", "-f", "leadbook.db"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("last flag wins", func(t *testing.T) {
		os.Args = []string{"leadbook", "-c", "/tmp/1.json", "-config", "/tmp/2.json"}
		assert.Equal(t, "/tmp/2.json", JsonConfigFlags())
	})
}
