// Package meeting generates join links for virtual consultations.
package meeting

import (
	"strings"

	"github.com/google/uuid"
)

const (
	baseURL    = "https://meet.jit.si/"
	roomPrefix = "MedHelpConsultation"
	// Skips the Jitsi prejoin screen so patients land in the room.
	roomConfig = "#config.prejoinPageEnabled=true"
)

// NewLink returns a fresh unguessable meeting room URL.
func NewLink() string {
	room := strings.ReplaceAll(uuid.NewString(), "-", "")
	return baseURL + roomPrefix + room + roomConfig
}
