package shell

import (
	"bytes"
	"testing"

	"github.com/ralt/pyrene/internal/staging"
	"github.com/stretchr/testify/assert"
)

func TestCompletion(t *testing.T) {
	n := newFakeNetwork("alpha", "beta", "another")
	n.repos["alpha"].attributes["directory"] = "/x"
	n.repos["alpha"].attributes["port"] = "9000"
	s := New(Config{Network: n, Stage: staging.New(t.TempDir()), Out: &bytes.Buffer{}})

	tests := []struct {
		name       string
		command    string
		args       []string
		toComplete string
		want       []string
	}{
		{"repo name", "show", nil, "a", []string{"alpha", "another"}},
		{"repo name only once", "show", []string{"alpha"}, "", nil},
		{"set repo", "set", nil, "b", []string{"beta"}},
		{"set key", "set", []string{"alpha"}, "down", []string{"download_url="}},
		{"set type value", "set", []string{"alpha"}, "type=d", []string{"type=directory"}},
		{"set type any", "set", []string{"alpha"}, "type=", []string{"type=directory", "type=http"}},
		{"set other value", "set", []string{"alpha"}, "port=8", nil},
		{"unset key", "unset", []string{"alpha"}, "", []string{"directory", "port"}},
		{"unset unknown repo", "unset", []string{"nope"}, "", nil},
		{"copy", "copy", []string{"alpha:x"}, "an", []string{"another:"}},
		{"copy after separator", "copy", nil, "alpha:", nil},
		{"no completer", "list", nil, "", nil},
		{"unknown command", "nope", nil, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Complete(tt.command, tt.args, tt.toComplete))
		})
	}
}
