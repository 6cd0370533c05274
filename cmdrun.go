// Package cmdrun provides a supervised command execution engine: spawn a
// child process (optionally through a shell), collect its merged
// stdout/stderr, and optionally layer wall-clock timeouts or scripted
// question/answer automation on top of a streaming read loop.
//
// The package is built around a single entry point, [Execute], configured
// with functional options. The named wrappers — [Run], [NoWorries],
// [AsyncRun], [AsyncLoop], [AsyncToStdout], [Timeout], [RunFile], [QA],
// [QALog], [QAStdout] — are thin presets over Execute matching the historic
// shape of this engine's predecessor tooling.
//
// Quick start:
//
//	code, output, err := cmdrun.Run(cmdrun.Tokens("echo", "hi"))
//	// code == 0, output == "hi\n"
package cmdrun

// Sentinel exit codes returned in place of a real child exit status when
// the engine itself terminates the run.
const (
	// TimeoutExitCode is returned when a Run is killed by [Timeout] after
	// exceeding its wall-clock budget.
	TimeoutExitCode = 123

	// QAMissExitCode is returned when a QA Run exceeds the miss-count
	// bailout threshold ([qa.MaxMissCount]) without a matching question.
	QAMissExitCode = 124
)
