// Package cliutil holds the logging and process-exit conventions
// shared by cmd/pox-resolve's subcommands, adapted from cmd/dep's
// Loggers type but backed by logrus so CLI-level messages carry
// structured fields (package name, rule count, elapsed time) instead
// of being plain fmt.Sprintf strings.
package cliutil

import (
	"io"

	mmsemver "github.com/Masterminds/semver"
	"github.com/sirupsen/logrus"
)

// Loggers holds the CLI's output streams and verbosity flag, mirroring
// cmd/dep's Loggers but with *logrus.Logger in place of *log.Logger.
type Loggers struct {
	Out, Err *logrus.Logger
	Verbose  bool
}

// NewLoggers builds a Loggers pair writing to out/err, with Out
// formatted for humans and Err carrying structured fields so failures
// are greppable even outside a TTY.
func NewLoggers(out, err io.Writer, verbose bool) *Loggers {
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}

	outLog := logrus.New()
	outLog.SetOutput(out)
	outLog.SetLevel(level)
	outLog.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	errLog := logrus.New()
	errLog.SetOutput(err)
	errLog.SetLevel(level)
	errLog.SetFormatter(&logrus.TextFormatter{})

	return &Loggers{Out: outLog, Err: errLog, Verbose: verbose}
}

// SolveSummary logs the headline numbers from a finished solve, the
// CLI-facing equivalent of the core's internal trace output.
func (l *Loggers) SolveSummary(poolSize, optimizedSize, ruleCount, installedCount int) {
	l.Out.WithFields(logrus.Fields{
		"pool_size":       poolSize,
		"optimized_size":  optimizedSize,
		"rules_generated": ruleCount,
		"installed":       installedCount,
	}).Info("dependency resolution completed")
}

// Unsolvable logs a resolution failure at error level so it's visible
// even when Verbose is false.
func (l *Loggers) Unsolvable(err error) {
	l.Err.WithError(err).Error("could not resolve dependencies")
}

// WarnNonSemverVersions cross-checks each solved package's version
// string (the resolve command passes pretty versions) against
// Masterminds/semver, which parses strict SemVer2
// rather than the Composer-style grammar the resolver itself accepts.
// A package failing this check isn't an error — branches, stability
// suffixes and the rest of the Composer grammar are expected to fail
// it routinely — but it's worth a debug-level note so an operator
// auditing a lockfile can tell "ordinary Composer version" apart from
// "everything else" at a glance.
func (l *Loggers) WarnNonSemverVersions(names, versions []string) {
	for i, v := range versions {
		if _, err := mmsemver.NewVersion(v); err != nil {
			l.Out.WithFields(logrus.Fields{
				"package": names[i],
				"version": v,
			}).Debug("version is not strict SemVer2; resolved via the Composer-style grammar instead")
		}
	}
}
