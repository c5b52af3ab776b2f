package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const temporaryPrefix = "temp-"

// EntityID is either a locally generated placeholder for a not-yet-confirmed
// entity or the identifier assigned by the remote store. The zero value is
// the empty persisted id.
type EntityID struct {
	value     string
	temporary bool
}

func NewTemporaryID() EntityID {
	return EntityID{value: uuid.NewString(), temporary: true}
}

func PersistedID(remoteID string) EntityID {
	return EntityID{value: remoteID}
}

func (id EntityID) IsTemporary() bool { return id.temporary }

func (id EntityID) IsZero() bool { return id.value == "" }

// Remote returns the remote identifier; ok is false for temporary ids.
func (id EntityID) Remote() (string, bool) {
	if id.temporary {
		return "", false
	}
	return id.value, true
}

func (id EntityID) String() string {
	if id.temporary {
		return temporaryPrefix + id.value
	}
	return id.value
}

// ParseEntityID decodes the wire form produced by String.
func ParseEntityID(s string) EntityID {
	if rest, ok := strings.CutPrefix(s, temporaryPrefix); ok {
		return EntityID{value: rest, temporary: true}
	}
	return EntityID{value: s}
}

func (id EntityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *EntityID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// numeric ids from older payloads
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return err
		}
		s = n.String()
	}
	*id = ParseEntityID(s)
	return nil
}
