package commands_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/precommander/internal/precommander/commands"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *commands.Command
	}{
		{
			name:  "name only",
			input: "/unnote",
			want:  &commands.Command{Name: "unnote", RawText: "/unnote"},
		},
		{
			name:  "name and args",
			input: "/note bob troublemaker",
			want:  &commands.Command{Name: "note", Args: "bob troublemaker", RawText: "/note bob troublemaker"},
		},
		{
			name:  "case folded and trimmed",
			input: "  /BaN\tcarol   spam  spam \n",
			want:  &commands.Command{Name: "ban", Args: "carol   spam  spam", RawText: "/BaN\tcarol   spam  spam"},
		},
		{
			name:  "unknown names still parse",
			input: "/me waves",
			want:  &commands.Command{Name: "me", Args: "waves", RawText: "/me waves"},
		},
		{
			name:  "accented args survive",
			input: "/note žluťoučký kůň",
			want:  &commands.Command{Name: "note", Args: "žluťoučký kůň", RawText: "/note žluťoučký kůň"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commands.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_NotACommand(t *testing.T) {
	for _, input := range []string{"", "   ", "hello /note bob", "/", "/ note bob", "note bob"} {
		if _, err := commands.Parse(input); !errors.Is(err, commands.ErrNotACommand) {
			t.Errorf("Parse(%q) err = %v, want ErrNotACommand", input, err)
		}
	}
}

func TestSplitTarget(t *testing.T) {
	tests := []struct {
		args, nick, rest string
	}{
		{"", "", ""},
		{"bob", "bob", ""},
		{"bob troublemaker", "bob", "troublemaker"},
		{"  bob   spams  links ", "bob", "spams  links"},
	}
	for _, tt := range tests {
		nick, rest := commands.SplitTarget(tt.args)
		if nick != tt.nick || rest != tt.rest {
			t.Errorf("SplitTarget(%q) = (%q, %q), want (%q, %q)", tt.args, nick, rest, tt.nick, tt.rest)
		}
	}
}
