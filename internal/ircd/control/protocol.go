// Package control defines the wire types cmd/ircd and cmd/ircd-console
// exchange over the operator control socket (spec §6: CONNECT,
// RCONNECT, SQUIT, RSQUIT, MAP, LINKS).
//
// Grounded on the teacher's cliCommand/cliResponse
// (src/minimega/command_socket.go): one JSON value per request, one
// per response, encoded with encoding/json straight onto the
// connection. The teacher's TID-based response multiplexing
// (commandSocketMux/socketRegister) exists there because several
// attached clients share one running command loop; here each console
// connection gets its own goroutine and there is nothing to fan back
// out, so that layer has no counterpart.
package control

// Request names the operator verb and its arguments.
type Request struct {
	Verb string
	Args []string
}

// Response reports the verb's outcome. Err is set, and OK false,
// exactly when the verb failed.
type Response struct {
	OK     bool
	Output string
	Err    string
}
