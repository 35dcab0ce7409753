// Package ids generates identifiers for messages, rooms and synthesized
// users. Message and room ids keep the "<prefix>-<unix millis>-<suffix>"
// shape so that persisted records stay readable when inspected by hand.
package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength   = 9
)

var suffix = mustGenerator(nanoid.CustomASCII(suffixAlphabet, suffixLength))

func mustGenerator(gen func() string, err error) func() string {
	if err != nil {
		panic(fmt.Sprintf("ids: build generator: %v", err))
	}
	return gen
}

// Message returns a fresh message id stamped with now.
func Message(now time.Time) string {
	return fmt.Sprintf("msg-%d-%s", now.UnixMilli(), suffix())
}

// Room returns a fresh room id stamped with now.
func Room(now time.Time) string {
	return fmt.Sprintf("room-%d-%s", now.UnixMilli(), suffix())
}

// User returns a fresh id for an identity created at login or signup.
func User() string {
	return "user-" + uuid.NewString()
}

// HasPrefix reports whether id was produced for the given kind ("msg",
// "room" or "user").
func HasPrefix(id, kind string) bool {
	return strings.HasPrefix(id, kind+"-")
}
