// Command ircd-console is the operator's interactive shell onto a
// running ircd process, dialing its control socket and issuing the
// spec §6 operator-facing commands: CONNECT, RCONNECT, SQUIT,
// RSQUIT, MAP, LINKS.
//
// Grounded on the teacher's local.go: NewRemoteMinimega dials a unix
// socket and wraps it in a json.Encoder/Decoder pair, localAttach
// drives a read-eval-print loop around it. The teacher's goreadline
// is swapped for github.com/peterh/liner, the line-editing library
// the rest of the example pack reaches for instead of a raw bufio
// scanner.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/sandia-minimega/spanningtree/internal/ircd/control"
)

var fSocket = flag.String("control", "/tmp/ircd.sock", "unix socket path of the running ircd's operator console")

type remoteIRCd struct {
	path string
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

func dial(path string) (*remoteIRCd, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, err
	}
	return &remoteIRCd{
		path: path,
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

func (r *remoteIRCd) run(verb string, args []string) (control.Response, error) {
	if err := r.enc.Encode(&control.Request{Verb: verb, Args: args}); err != nil {
		return control.Response{}, err
	}
	var resp control.Response
	if err := r.dec.Decode(&resp); err != nil {
		return control.Response{}, err
	}
	return resp, nil
}

func main() {
	flag.Parse()

	rm, err := dial(*fSocket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ircd-console: %v\n", err)
		os.Exit(1)
	}
	defer rm.conn.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("connected to", *fSocket)
	fmt.Println("commands: connect, rconnect, squit, rsquit, map, links, quit")

	for {
		input, err := line.Prompt("ircd> ")
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		verb := strings.ToUpper(fields[0])
		args := fields[1:]

		if verb == "QUIT" || verb == "EXIT" || verb == "DISCONNECT" {
			return
		}

		resp, err := rm.run(verb, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ircd-console: %v\n", err)
			return
		}
		if !resp.OK {
			fmt.Fprintln(os.Stderr, "error:", resp.Err)
			continue
		}
		if resp.Output != "" {
			fmt.Print(resp.Output)
			if !strings.HasSuffix(resp.Output, "\n") {
				fmt.Println()
			}
		}
	}
}
