// Package burst implements the netburst synchronization described in
// spec §4.5: on link-up, serialize full local state (servers, users,
// channels, X-lines) as an ordered BURST…ENDBURST sequence.
//
// Grounded on original_source/modules/spanningtree/netburst.cpp for
// step ordering and sinfo.cpp for the SINFO wire shape; the teacher
// has no direct analogue (meshage has no bulk-sync phase — new nodes
// simply union their adjacency map, see meshage/node.go's union()) so
// the serialization idiom here follows the teacher's preference for
// building lines with strings.Builder / fmt.Sprintf over the
// command.go "Command Builder" rather than meshage's gob encoder,
// since the wire format is text, not gob.
package burst

import (
	"github.com/sandia-minimega/spanningtree/internal/ircd/ids"
)

// User is the minimal view of a local/remote user the Burst Engine
// needs to emit a UID line (spec §4.5 step 3). The full user table is
// an external collaborator (spec §6).
type User struct {
	UUID        ids.UUID
	NickTS      ids.TS
	Nick        string
	Host        string
	DisplayHost string
	Ident       string
	IP          string
	SignonTS    ids.TS
	Modes       string
	RealName    string

	Opered      bool
	OperName    string
	OperChanModes string
	OperUserModes string
	OperSnomasks  string
	OperCommands  string
	OperPrivileges string

	Away    bool
	AwayTS  ids.TS
	AwayMsg string

	Metadata map[string]string // per-user extensible metadata this side owns
}

// Membership is one channel membership with its status prefixes
// ("ov" etc.) for the FJOIN member list.
type Membership struct {
	UUID     ids.UUID
	Prefixes string // e.g. "o", "ov", ""
}

// Channel is the minimal view the Burst Engine needs to emit
// FJOIN/FTOPIC/LMODE lines (spec §4.5 step 4).
type Channel struct {
	Name       string
	TS         ids.TS
	Modes      string
	ModeParams []string
	Members    []Membership

	TopicSet    bool
	Topic       string
	TopicSetter string
	TopicTS     ids.TS

	ListModeLimits map[byte]int
	ListModeEntries map[byte][]string // letter -> list of mask entries

	Metadata       map[string]string            // per-channel metadata
	MemberMetadata map[ids.UUID]map[string]string // per-membership metadata
}

// StateProvider is the §6 boundary to the user table / channel table /
// extensible metadata collaborators: everything the Burst Engine reads
// to build its outbound sequence.
type StateProvider interface {
	LocalUsers() []*User
	LocalChannels() []*Channel
}
