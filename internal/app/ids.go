package app

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

const ticketNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newTicketNumber returns a human-readable globally unique ticket number
// such as TKT-7FQ2-K9ZB-4XMD. It is a support-lookup handle, not a security
// token; the proof is the credential.
func newTicketNumber() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate ticket number: %w", err)
	}
	out := make([]byte, 0, 18)
	out = append(out, 'T', 'K', 'T')
	for i, b := range raw {
		if i%4 == 0 {
			out = append(out, '-')
		}
		out = append(out, ticketNumberAlphabet[int(b)%len(ticketNumberAlphabet)])
	}
	return string(out), nil
}
