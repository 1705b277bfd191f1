package config

import (
	"reflect"
	"strings"
	"testing"

	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

func TestSplitPassthroughKeepsOrder(t *testing.T) {
	own, pass := SplitPassthrough([]string{
		"v1.0", "--type=CCHANGEBAR", "--main", "paper.tex",
		"--exclude-textcmd=section", "-b", "v2.0",
	})

	wantOwn := []string{"v1.0", "--main", "paper.tex", "-b", "v2.0"}
	if !reflect.DeepEqual(own, wantOwn) {
		t.Errorf("own args = %v, want %v", own, wantOwn)
	}
	wantPass := []string{"--type=CCHANGEBAR", "--exclude-textcmd=section"}
	if !reflect.DeepEqual(pass, wantPass) {
		t.Errorf("passthrough = %v, want %v", pass, wantPass)
	}
}

func TestSplitPassthroughWorktreeSentinel(t *testing.T) {
	own, pass := SplitPassthrough([]string{"HEAD~1", "--"})
	if len(pass) != 0 {
		t.Errorf("sentinel leaked into passthrough: %v", pass)
	}
	if !reflect.DeepEqual(own, []string{"HEAD~1", "--"}) {
		t.Errorf("own args = %v", own)
	}
}

func TestSplitPassthroughEqualsForm(t *testing.T) {
	own, pass := SplitPassthrough([]string{"--main=paper.tex", "--cleanup=keeppdf", "old"})
	if len(pass) != 0 {
		t.Errorf("known --flag=value forms misrouted: %v", pass)
	}
	if len(own) != 3 {
		t.Errorf("own args = %v", own)
	}
}

func TestExtractRevisions(t *testing.T) {
	flags, revs := ExtractRevisions([]string{
		"--main", "paper.tex", "HEAD~1", "-b", "--", "--latexmk",
	})

	wantFlags := []string{"--main", "paper.tex", "-b", "--latexmk"}
	if !reflect.DeepEqual(flags, wantFlags) {
		t.Errorf("flags = %v, want %v", flags, wantFlags)
	}
	wantRevs := []string{"HEAD~1", "--"}
	if !reflect.DeepEqual(revs, wantRevs) {
		t.Errorf("revs = %v, want %v", revs, wantRevs)
	}
}

func TestExtractRevisionsFlagValueNotPositional(t *testing.T) {
	_, revs := ExtractRevisions([]string{"--prepare", "make weave", "v1.0"})
	if !reflect.DeepEqual(revs, []string{"v1.0"}) {
		t.Errorf("revs = %v, want [v1.0]", revs)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	opts, err := Normalize(Options{OldRev: "v1.0"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.NewRev != "HEAD" {
		t.Errorf("NewRev = %q, want HEAD", opts.NewRev)
	}
	if opts.Cleanup != CleanupAll {
		t.Errorf("Cleanup = %q, want all", opts.Cleanup)
	}
	if opts.TmpDirPrefix == "" {
		t.Error("TmpDirPrefix not defaulted")
	}
}

func TestNormalizeRequiresOldRev(t *testing.T) {
	_, err := Normalize(Options{})
	if !texerr.IsCategory(err, texerr.CategoryUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestNormalizeRejectsWorktreeAsOld(t *testing.T) {
	_, err := Normalize(Options{OldRev: WorktreeRev})
	if !texerr.IsCategory(err, texerr.CategoryUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestNormalizeOutputForcesCleanupAll(t *testing.T) {
	opts, err := Normalize(Options{OldRev: "v1.0", Cleanup: CleanupNone, Output: "result.pdf"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.Cleanup != CleanupAll {
		t.Errorf("Cleanup = %q, want all when -o is given", opts.Cleanup)
	}
}

func TestNormalizeWorktreeForcesLnUntracked(t *testing.T) {
	opts, err := Normalize(Options{OldRev: "v1.0", NewRev: WorktreeRev})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !opts.LnUntracked {
		t.Error("LnUntracked not forced for working-tree sentinel")
	}
}

func TestNormalizeRejectsUnknownCleanup(t *testing.T) {
	_, err := Normalize(Options{OldRev: "v1.0", Cleanup: "sometimes"})
	if !texerr.IsCategory(err, texerr.CategoryUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestDeriveKnitrRewritesMainAndPrepare(t *testing.T) {
	opts, err := Normalize(Options{OldRev: "v1", Main: "doc/paper.Rnw"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.Main != "doc/paper.tex" {
		t.Errorf("Main = %q, want doc/paper.tex", opts.Main)
	}
	if opts.Prepare == "" {
		t.Fatal("no prepare command derived for knitr document")
	}
	if want := `knit("paper.Rnw")`; !strings.Contains(opts.Prepare, want) {
		t.Errorf("Prepare = %q, want it to contain %q", opts.Prepare, want)
	}
}

func TestDeriveKnitrKeepsExplicitPrepare(t *testing.T) {
	opts, err := Normalize(Options{OldRev: "v1", Main: "paper.Rtex", Prepare: "make weave"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if opts.Prepare != "make weave" {
		t.Errorf("explicit prepare command overwritten: %q", opts.Prepare)
	}
	if opts.Main != "paper.tex" {
		t.Errorf("Main = %q, want paper.tex", opts.Main)
	}
}

func TestMainDirAndBase(t *testing.T) {
	o := Options{Main: "papers/2024/paper.tex"}
	if o.MainDir() != "papers/2024" {
		t.Errorf("MainDir = %q", o.MainDir())
	}
	if o.MainBase() != "paper.tex" {
		t.Errorf("MainBase = %q", o.MainBase())
	}

	root := Options{Main: "paper.tex"}
	if root.MainDir() != "" {
		t.Errorf("MainDir for root file = %q, want empty", root.MainDir())
	}
}
