// Command pox-resolve is the CLI entry point around internal/solver:
// it reads a resolve document (the candidate pool, the root's
// requirements, and any locked packages), runs the optimizer and SAT
// solver over it, and prints the resulting package set. Its Config/Run
// split and its command-table dispatch are the teacher's own cmd/dep
// main.go shape, scaled down to the one job this tool does.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/shyim/pox-sub000/internal/cliutil"
	"github.com/shyim/pox-sub000/internal/config"
	"github.com/shyim/pox-sub000/internal/installer"
	"github.com/shyim/pox-sub000/internal/lockfile"
	"github.com/shyim/pox-sub000/internal/pkgmodel"
	"github.com/shyim/pox-sub000/internal/solver"
)

type command interface {
	Name() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(c *Config, fs *flag.FlagSet) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
	}
	os.Exit(c.Run())
}

// Config specifies a full pox-resolve execution.
type Config struct {
	WorkingDir string
	Args       []string
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

var commands = []command{
	&resolveCommand{},
	&pruneCommand{},
	&versionCommand{},
}

// Run dispatches to the named subcommand and returns a process exit
// code, the same contract as the teacher's Config.Run.
func (c *Config) Run() (exitCode int) {
	if len(c.Args) < 2 {
		usage(c.Stderr)
		return 1
	}

	name := c.Args[1]
	for _, cmd := range commands {
		if cmd.Name() != name {
			continue
		}
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		cmd.Register(fs)
		if err := fs.Parse(c.Args[2:]); err != nil {
			return 1
		}
		if err := cmd.Run(c, fs); err != nil {
			fmt.Fprintf(c.Stderr, "pox-resolve: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(c.Stderr, "pox-resolve: %s: no such command\n", name)
	usage(c.Stderr)
	return 1
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "pox-resolve resolves a package pool against a set of requirements")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: pox-resolve <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, cmd := range commands {
		fmt.Fprintf(tw, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
	}
	tw.Flush()
}

// resolveCommand reads a document (a file named by -in, or stdin) and
// prints the solved package set as JSON.
type resolveCommand struct {
	in         string
	configPath string
	lockOut    string
	verbose    bool
	noOptimize bool
}

func (*resolveCommand) Name() string      { return "resolve" }
func (*resolveCommand) ShortHelp() string { return "solve a pool document and print the result" }

func (rc *resolveCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&rc.in, "in", "", "path to the resolve document (default: stdin)")
	fs.StringVar(&rc.configPath, "config", "", "optional pox.toml tool config; its prefer-lowest and preferred-versions settings override the document's")
	fs.StringVar(&rc.lockOut, "lock", "", "also write a lockfile to this path on a successful solve")
	fs.BoolVar(&rc.verbose, "v", false, "enable verbose solver tracing")
	fs.BoolVar(&rc.noOptimize, "no-optimize", false, "disable pool optimization before solving")
}

func (rc *resolveCommand) Run(c *Config, fs *flag.FlagSet) error {
	loggers := cliutil.NewLoggers(c.Stdout, c.Stderr, rc.verbose)

	var r io.Reader = c.Stdin
	if rc.in != "" {
		f, err := os.Open(filepath.Clean(rc.in))
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	doc, err := decodeDocument(r)
	if err != nil {
		return err
	}

	pl, req, pol, err := doc.build(nil)
	if err != nil {
		return err
	}

	if rc.configPath != "" {
		cfg, err := config.Load(rc.configPath)
		if err != nil {
			return err
		}
		pol.PreferLowest = cfg.PreferLowest
		names := make([]string, 0, len(cfg.PreferredVersions))
		for name := range cfg.PreferredVersions {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			pol.WithPreferredVersion(name, cfg.PreferredVersions[name])
		}
	}

	sv := solver.New(pl, pol).WithOptimization(!rc.noOptimize)
	if rc.verbose {
		sv = sv.WithLogger(log.New(c.Stderr, "solver: ", 0))
	}

	start := time.Now()
	result, problems := sv.Solve(req)
	elapsed := time.Since(start)

	if problems != nil {
		loggers.Unsolvable(problems)
		return problems
	}

	loggers.SolveSummary(pl.Len(), pl.Len(), 0, len(result.Packages))
	loggers.Out.WithField("elapsed", elapsed).Debug("solve finished")

	names := make([]string, len(result.Packages))
	versions := make([]string, len(result.Packages))
	for i, pkg := range result.Packages {
		names[i] = pkg.Name
		versions[i] = pkg.PrettyVersion
	}
	loggers.WarnNonSemverVersions(names, versions)

	if rc.lockOut != "" {
		manifest := map[string]interface{}{
			"name":    doc.Root.Name,
			"require": doc.Root.Require,
		}
		if err := lockfile.Write(rc.lockOut, manifest, result.Packages); err != nil {
			return err
		}
	}

	return json.NewEncoder(c.Stdout).Encode(packageDocsFrom(result))
}

// pruneCommand removes vendor directories left over from a previous
// solve by reading a lockfile and deleting anything underneath
// -vendor-dir that the lockfile no longer lists.
type pruneCommand struct {
	lockPath  string
	vendorDir string
}

func (*pruneCommand) Name() string      { return "prune" }
func (*pruneCommand) ShortHelp() string { return "remove vendor directories not in the lockfile" }

func (pc *pruneCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&pc.lockPath, "lockfile", "pox.lock", "path to the lockfile naming the wanted packages")
	fs.StringVar(&pc.vendorDir, "vendor-dir", "vendor", "vendor directory to prune")
}

func (pc *pruneCommand) Run(c *Config, _ *flag.FlagSet) error {
	doc, err := lockfile.Read(pc.lockPath)
	if err != nil {
		return err
	}

	result := &solver.SolverResult{}
	for _, pkg := range doc.Packages {
		result.Packages = append(result.Packages, pkgmodel.NewPackage(pkg.Name, pkg.PrettyVersion, pkg.Version))
	}

	pruner := installer.NewPruner(pc.vendorDir, pc.vendorDir+".lock")
	if err := pruner.Prune(result); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Stdout, "pruned %s against %d locked packages\n", pc.vendorDir, len(result.Packages))
	return err
}

type versionCommand struct{}

func (*versionCommand) Name() string      { return "version" }
func (*versionCommand) ShortHelp() string { return "print the pox-resolve version" }
func (*versionCommand) Register(*flag.FlagSet) {}
func (*versionCommand) Run(c *Config, _ *flag.FlagSet) error {
	_, err := fmt.Fprintln(c.Stdout, "pox-resolve (development build)")
	return err
}
