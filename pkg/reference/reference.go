// Package reference generates the human-readable identifiers the platform
// hands out: ticket IDs, payout references, action codes, agent tags.
// Randomness is non-cryptographic by design of the formats (small alphabets,
// short lengths); unique indexes at the persistence layer catch collisions.
package reference

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	digits       = "0123456789"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	upperAlnum   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	mixedAlnum   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// TicketID returns a ticket identifier: "SPTX-TX-" followed by eight digits
// with two uppercase letters injected at random positions, the second
// strictly after the first.
func TicketID() (string, error) {
	body, err := randomString(digits, 8)
	if err != nil {
		return "", err
	}

	first, err := randInt(len(body))
	if err != nil {
		return "", err
	}
	offset, err := randInt(len(body) - first)
	if err != nil {
		return "", err
	}
	second := first + 1 + offset

	letterA, err := randomString(upperLetters, 1)
	if err != nil {
		return "", err
	}
	letterB, err := randomString(upperLetters, 1)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SPTX-TX-")
	runes := []rune(body)
	for i := 0; i <= len(runes); i++ {
		if i == first {
			sb.WriteString(letterA)
		}
		if i == second {
			sb.WriteString(letterB)
		}
		if i < len(runes) {
			sb.WriteRune(runes[i])
		}
	}
	return sb.String(), nil
}

// TicketReference returns six uppercase alphanumerics followed by four digits.
func TicketReference() (string, error) {
	head, err := randomString(upperAlnum, 6)
	if err != nil {
		return "", err
	}
	tail, err := randomString(digits, 4)
	if err != nil {
		return "", err
	}
	return head + tail, nil
}

// ActionCode returns the 12-character alphanumeric payout gate code.
func ActionCode() (string, error) {
	return randomString(mixedAlnum, 12)
}

// PayoutRecordReference returns the six-character reference stamped on a
// payout record alongside its action code.
func PayoutRecordReference() (string, error) {
	return randomString(upperAlnum, 6)
}

// AgentPayoutReference returns "SPTX-PO-" plus six alphanumerics and four
// digits. Used only for agent earnings withdrawal transactions; payout
// records carry the short PayoutRecordReference format instead.
func AgentPayoutReference() (string, error) {
	head, err := randomString(upperAlnum, 6)
	if err != nil {
		return "", err
	}
	tail, err := randomString(digits, 4)
	if err != nil {
		return "", err
	}
	return "SPTX-PO-" + head + tail, nil
}

// TransactionReference returns "SPTX-TR-" plus six alphanumerics and four
// digits. Used for agent wallet movements that are not payouts.
func TransactionReference() (string, error) {
	head, err := randomString(upperAlnum, 6)
	if err != nil {
		return "", err
	}
	tail, err := randomString(digits, 4)
	if err != nil {
		return "", err
	}
	return "SPTX-TR-" + head + tail, nil
}

// AgentID returns "SPTA" plus eight digits and two uppercase letters.
func AgentID() (string, error) {
	body, err := randomString(digits, 8)
	if err != nil {
		return "", err
	}
	letters, err := randomString(upperLetters, 2)
	if err != nil {
		return "", err
	}
	return "SPTA" + body + letters, nil
}

// BookerTag returns the verification tag "SPTX-B-" plus six alphanumerics.
func BookerTag() (string, error) {
	body, err := randomString(upperAlnum, 6)
	if err != nil {
		return "", err
	}
	return "SPTX-B-" + body, nil
}

// AuthCode returns a 22-character code: "SP-Auth-" plus fourteen alphanumerics.
func AuthCode() (string, error) {
	body, err := randomString(mixedAlnum, 14)
	if err != nil {
		return "", err
	}
	return "SP-Auth-" + body, nil
}

func randomString(charset string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	result := make([]byte, length)
	for i := 0; i < length; i++ {
		idx, err := randInt(len(charset))
		if err != nil {
			return "", err
		}
		result[i] = charset[idx]
	}
	return string(result), nil
}

func randInt(max int) (int, error) {
	if max <= 0 {
		return 0, fmt.Errorf("invalid max %d", max)
	}
	var buff = make([]byte, 1)
	if _, err := rand.Read(buff); err != nil {
		return 0, err
	}
	return int(buff[0]) % max, nil
}
