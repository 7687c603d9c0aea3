// Package shell names the command surface the (out-of-scope) shell
// exposes over this kernel's syscalls. The parser and REPL loop belong
// to a different part of the system; this package exists only so that
// surface has one canonical list instead of being repeated at every
// site that needs it.
package shell

// Commands lists every command name the shell surface exposes.
// Exit codes are not surfaced back to a caller: this is a single-
// process shell with no subprocess model to report one through.
var Commands = []string{
	"help", "clear", "version", "echo", "debug",
	"pwd", "cd", "ls", "mkdir", "touch", "cat", "cp", "mv", "rm",
	"write", "find", "tree", "stat",
	"fsinfo", "meminfo", "diskinfo", "timer", "ps", "test",
}
