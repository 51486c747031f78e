package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Set of command prefixes understood by a node.
const (
	CmdNewTransaction = "NEW_TRANSACTION:"
	CmdGetBlockToMine = "GET_BLOCK_TO_MINE"
	CmdMinedBlock     = "MINED_BLOCK:"
	CmdNewBlock       = "NEW_BLOCK:"
	CmdAddPeer        = "ADD_PEER:"
	CmdGetPeers       = "GET_PEERS"
	CmdGetBalance     = "GET_BALANCE:"
)

// Commands carrying a JSON value, a text value or nothing.
var (
	jsonCommands  = []string{CmdNewTransaction, CmdMinedBlock, CmdNewBlock}
	textCommands  = []string{CmdAddPeer, CmdGetBalance}
	plainCommands = []string{CmdGetBlockToMine, CmdGetPeers}
)

// Set of literal responses sent by a node.
const (
	RespTransactionAdded = "Transaction added"
	RespNoBlockAvailable = "NO_BLOCK_AVAILABLE"
	RespMinedBlockAdded  = "Mined block added to blockchain"
	RespMinedRejected    = "MINED_BLOCK_REJECTED: "
	RespBlockAccepted    = "Block accepted"
	RespBlockRejected    = "BLOCK_REJECTED: "
	RespPeerList         = "PEER_LIST:"
	RespUnknownCommand   = "Unknown command"
	RespError            = "ERROR: "
)

// =============================================================================

// Complete reports if the bytes received so far hold a whole command. A
// command without a payload must match exactly, a JSON payload must hold
// a whole value and a text payload ends with the read that carried it.
// Anything that is not the start of a known command is complete.
func Complete(data []byte) bool {
	raw := strings.TrimSpace(string(data))

	for _, cmd := range plainCommands {
		if raw == cmd {
			return true
		}
	}

	for _, cmd := range jsonCommands {
		if strings.HasPrefix(raw, cmd) {
			return completeJSON(raw[len(cmd):])
		}
	}

	for _, cmd := range textCommands {
		if strings.HasPrefix(raw, cmd) {
			return len(raw) > len(cmd)
		}
	}

	// Wait for the rest of a command name cut short.
	for _, cmds := range [][]string{plainCommands, jsonCommands, textCommands} {
		for _, cmd := range cmds {
			if strings.HasPrefix(cmd, raw) {
				return false
			}
		}
	}

	return true
}

// completeJSON reports if the payload holds a whole JSON value. Malformed
// JSON is complete so the handler can reject it.
func completeJSON(payload string) bool {
	var v json.RawMessage
	err := json.NewDecoder(strings.NewReader(payload)).Decode(&v)

	return !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF)
}

// Encode builds a command carrying the JSON encoding of the value.
func Encode(cmd string, value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", strings.TrimSuffix(cmd, ":"), err)
	}

	return cmd + string(data), nil
}

// Decode unmarshals the JSON payload of a command into the value.
func Decode(cmd string, payload string, value any) error {
	if err := json.Unmarshal([]byte(payload), value); err != nil {
		return &DecodeError{Command: cmd, Err: err}
	}

	return nil
}

// PeerAdded returns the response to an ADD_PEER command.
func PeerAdded(host string) string {
	return fmt.Sprintf("Peer %s added", host)
}

// FormatPeerList returns the response to a GET_PEERS command.
func FormatPeerList(hosts []string) string {
	return RespPeerList + strings.Join(hosts, ",")
}

// ParsePeerList extracts the hosts from a GET_PEERS response.
func ParsePeerList(resp string) ([]string, error) {
	if !strings.HasPrefix(resp, RespPeerList) {
		return nil, &DecodeError{Command: CmdGetPeers, Err: fmt.Errorf("unexpected response %q", resp)}
	}

	var hosts []string
	for _, host := range strings.Split(strings.TrimPrefix(resp, RespPeerList), ",") {
		if host = strings.TrimSpace(host); host != "" {
			hosts = append(hosts, host)
		}
	}

	return hosts, nil
}
