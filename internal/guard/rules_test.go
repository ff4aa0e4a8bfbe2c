package guard

import (
	"errors"
	"testing"

	"github.com/marcelocantos/pipesh/internal/pipeline"
)

func TestHasAnyFlag(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		flags []string
		want  bool
	}{
		{"exact short", []string{"-f"}, []string{"-f"}, true},
		{"exact long", []string{"--force"}, []string{"--force"}, true},
		{"no match", []string{"-v"}, []string{"-f"}, false},

		{"cluster has r", []string{"-rf"}, []string{"-r"}, true},
		{"cluster has f", []string{"-rf"}, []string{"-f"}, true},
		{"cluster lacks x", []string{"-rf"}, []string{"-x"}, false},

		{"attached value", []string{"-j4"}, []string{"-j"}, true},
		{"attached value other flag", []string{"-j4"}, []string{"-k"}, false},

		{"long with value", []string{"--force=yes"}, []string{"--force"}, true},
		{"long prefix only", []string{"--forced"}, []string{"--force"}, false},
		{"long never matches short", []string{"--reset"}, []string{"-r"}, false},

		{"path", []string{"/tmp/file"}, []string{"-f"}, false},
		{"empty", []string{""}, []string{"-f"}, false},
		{"mixed", []string{"file.txt", "-r", "dir/"}, []string{"-r"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasAnyFlag(tt.args, tt.flags...); got != tt.want {
				t.Errorf("hasAnyFlag(%v, %v) = %v, want %v", tt.args, tt.flags, got, tt.want)
			}
		})
	}
}

func TestRuleSetCheck(t *testing.T) {
	errHard := errors.New("hard")
	errCfg := errors.New("config")

	t.Run("hard-coded first", func(t *testing.T) {
		rs := NewRuleSet(func(prog string, _ []string) error {
			if prog == "rm" {
				return errHard
			}
			return nil
		})
		rs.AddConfig(func(string, []string) error { return errCfg })

		if err := rs.Check("rm", nil); err != errHard {
			t.Errorf("expected hard-coded error, got %v", err)
		}
		if err := rs.Check("ls", nil); err != errCfg {
			t.Errorf("expected config error, got %v", err)
		}
	})

	t.Run("empty set allows", func(t *testing.T) {
		if err := NewRuleSet().Check("grep", []string{"-r", "x"}); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("nil set allows", func(t *testing.T) {
		var rs *RuleSet
		if err := rs.Check("rm", []string{"-rf", "/"}); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		if rs.Len() != 0 {
			t.Errorf("expected 0 rules")
		}
	})
}

func TestCheckPipeline(t *testing.T) {
	rs := NewRuleSet(Hardcoded()...)

	p, err := pipeline.Parse("echo hi | rm -rf / | cat")
	if err != nil {
		t.Fatal(err)
	}
	err = rs.CheckPipeline(p)
	var rej *Rejection
	if !errors.As(err, &rej) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if rej.Stage != 1 || rej.Program != "rm" {
		t.Errorf("rejection = %+v", rej)
	}
	if got := rej.Error(); got != `stage 1 (rm): refusing to recursively remove "/"` {
		t.Errorf("message = %q", got)
	}

	p, err = pipeline.Parse("rm -r .")
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.CheckPipeline(p); err == nil || err.Error() != `rm: refusing to recursively remove "."` {
		t.Errorf("unexpected error %v", err)
	}

	p, err = pipeline.Parse("ls -l | sort")
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.CheckPipeline(p); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
