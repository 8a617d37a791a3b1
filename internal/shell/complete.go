package shell

import (
	"sort"
	"strings"

	"github.com/ralt/pyrene/internal/network"
	"github.com/ralt/pyrene/internal/repos"
)

// Complete returns the candidates for the next argument of command name.
// args are the arguments already given, toComplete the partial word.
func (s *Shell) Complete(name string, args []string, toComplete string) []string {
	cmd, ok := s.commands[name]
	if !ok || cmd.complete == nil {
		return nil
	}
	return cmd.complete(s, args, toComplete)
}

// CompleteRepoName completes the single repository argument
func (s *Shell) CompleteRepoName(args []string, toComplete string) []string {
	if len(args) > 0 {
		return nil
	}
	return withPrefix(s.network.RepoNames(), toComplete)
}

// CompleteSet completes the repository name, then attribute keys, then the
// value of type
func (s *Shell) CompleteSet(args []string, toComplete string) []string {
	if len(args) == 0 {
		return withPrefix(s.network.RepoNames(), toComplete)
	}
	if value, ok := strings.CutPrefix(toComplete, repos.AttrType+"="); ok {
		var candidates []string
		for _, t := range network.RepoTypes() {
			candidates = append(candidates, repos.AttrType+"="+t)
		}
		return withPrefix(candidates, repos.AttrType+"="+value)
	}
	if strings.Contains(toComplete, "=") {
		return nil
	}

	var candidates []string
	for _, key := range network.RepoAttributes() {
		candidates = append(candidates, key+"=")
	}
	return withPrefix(candidates, toComplete)
}

// CompleteUnset completes the repository name, then the attributes it has
func (s *Shell) CompleteUnset(args []string, toComplete string) []string {
	if len(args) == 0 {
		return withPrefix(s.network.RepoNames(), toComplete)
	}
	attributes, err := s.network.GetAttributes(args[0])
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	return withPrefix(keys, toComplete)
}

// CompleteCopy offers REPO: for every defined repository. Local paths are
// left to the caller's file completion.
func (s *Shell) CompleteCopy(_ []string, toComplete string) []string {
	if strings.Contains(toComplete, Separator) {
		return nil
	}
	var candidates []string
	for _, name := range s.network.RepoNames() {
		candidates = append(candidates, name+Separator)
	}
	return withPrefix(candidates, toComplete)
}

func withPrefix(candidates []string, prefix string) []string {
	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			matches = append(matches, c)
		}
	}
	sort.Strings(matches)
	return matches
}
