package main

import (
	"strings"
	"unicode/utf8"
)

// Telnet command constants (RFC 854)
const (
	IAC  byte = 255 // Interpret As Command
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Subnegotiation Begin
	GA   byte = 249 // Go Ahead
	SE   byte = 240 // Subnegotiation End
)

// ProcessedOutput is the result of one pass over a raw read from the MUD.
// Display holds the data bytes with all telnet sequences stripped, Responses
// holds the negotiation replies owed to the server (in scan order), and
// Remainder holds the bytes of an incomplete trailing sequence. Remainder
// must be passed back as-is on the next call, ahead of the next read.
type ProcessedOutput struct {
	Display   []byte
	Responses [][]byte
	GA        bool
	Remainder []byte
}

// processTelnet scans remainder followed by raw as one buffer and strips
// telnet control sequences from it. Negotiation is decline-everything: DO is
// answered with WONT, WILL with DONT, and WONT/DONT need no answer.
// Subnegotiation blocks are discarded whole. An IAC GA marks the scanned
// chunk as ending on a prompt boundary.
func processTelnet(remainder, raw []byte) ProcessedOutput {
	data := raw
	if len(remainder) > 0 {
		data = make([]byte, 0, len(remainder)+len(raw))
		data = append(data, remainder...)
		data = append(data, raw...)
	}

	var out ProcessedOutput
	i := 0
scan:
	for i < len(data) {
		if data[i] != IAC {
			out.Display = append(out.Display, data[i])
			i++
			continue
		}

		if i+1 >= len(data) {
			// Lone IAC at the end of the buffer. Never a literal byte;
			// wait for the rest of the sequence.
			break
		}

		switch cmd := data[i+1]; cmd {
		case IAC:
			// Escaped 255 data byte
			out.Display = append(out.Display, IAC)
			i += 2

		case DO, DONT, WILL, WONT:
			if i+2 >= len(data) {
				// Option byte hasn't arrived yet
				break scan
			}
			opt := data[i+2]
			switch cmd {
			case DO:
				out.Responses = append(out.Responses, []byte{IAC, WONT, opt})
			case WILL:
				out.Responses = append(out.Responses, []byte{IAC, DONT, opt})
			}
			// WONT and DONT confirm a refusal we already want; no reply
			i += 3

		case SB:
			end := subnegEnd(data[i:])
			if end < 0 {
				// Terminator not in this buffer. Carry from IAC SB so the
				// resumed scan re-discovers the block from its start.
				break scan
			}
			i += end

		case GA:
			out.GA = true
			i += 2

		default:
			// Other single-byte commands (NOP, AYT, ...) carry no payload
			i += 2
		}
	}

	if i < len(data) {
		// Copy: data may alias the caller's reusable read buffer.
		out.Remainder = append([]byte(nil), data[i:]...)
	}
	return out
}

// subnegEnd returns the length of the subnegotiation block starting at
// data[0] (which is IAC, followed by SB), including the closing IAC SE, or
// -1 if the terminator is not in the buffer yet.
func subnegEnd(data []byte) int {
	for j := 2; j+1 < len(data); j++ {
		if data[j] == IAC && data[j+1] == SE {
			return j + 2
		}
	}
	return -1
}

// lossyString decodes bytes as UTF-8, substituting U+FFFD for invalid
// sequences. The MUD is untrusted; malformed output must render, not fail.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
