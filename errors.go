package cmdrun

import "errors"

// Sentinel errors for configuration and spawn failures. Non-zero child
// exit codes and the timeout/QA sentinel codes are not errors — they are
// reported through the exit code that [Execute] and its wrappers return.
var (
	// ErrInvalidCommand indicates a Run was configured with no command.
	ErrInvalidCommand = errors.New("cmdrun: invalid command")

	// ErrInvalidStartPath indicates StartPath does not exist or is not a
	// directory.
	ErrInvalidStartPath = errors.New("cmdrun: invalid start path")

	// ErrSpawnFailed indicates the OS refused to create the child process.
	ErrSpawnFailed = errors.New("cmdrun: spawn failed")

	// ErrDirectMutationForbidden is returned by [CmdBuilder.Append] and
	// [CmdBuilder.Extend]: every insertion must go through [CmdBuilder.Add]
	// so validation (type, spaces, templating) always runs.
	ErrDirectMutationForbidden = errors.New("cmdrun: direct mutation forbidden, use Add")

	// ErrSpacesForbidden is returned by [CmdBuilder.Add] when a token
	// contains a space and spaces were disallowed for that call.
	ErrSpacesForbidden = errors.New("cmdrun: spaces forbidden in token")

	// ErrFileTargetIsDir indicates [RunFile]'s filename option names an
	// existing directory.
	ErrFileTargetIsDir = errors.New("cmdrun: file target is a directory")
)
