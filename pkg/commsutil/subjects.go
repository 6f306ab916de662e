package commsutil

import (
	"fmt"
	"strconv"
	"strings"
)

const subjectsLogPrefix = "commsutil:subjects"

// DefaultPrefix is the subject root for plugin channels and events.
const DefaultPrefix = "plugin"

// Channel subject directions.
const (
	DirectionIn    = "in"
	DirectionOut   = "out"
	DirectionClose = "close"
)

// BuildChannelSubject builds "<prefix>.<callsign>.<channelID>.<direction>".
// Dots in the callsign are replaced so the channel id stays at a fixed depth.
func BuildChannelSubject(prefix, callsign string, channelID uint32, direction string) string {
	return fmt.Sprintf("%s.%s.%d.%s", prefix, safeToken(callsign), channelID, direction)
}

// BuildChannelWildcard builds the subscription subject matching every channel
// of callsign in one direction.
func BuildChannelWildcard(prefix, callsign, direction string) string {
	return fmt.Sprintf("%s.%s.*.%s", prefix, safeToken(callsign), direction)
}

// ParseChannelSubject extracts the channel id and direction from a subject
// built by BuildChannelSubject.
func ParseChannelSubject(subject string) (channelID uint32, direction string, err error) {
	parts := strings.Split(subject, ".")
	if len(parts) < 4 {
		return 0, "", fmt.Errorf("%s - malformed channel subject %q", subjectsLogPrefix, subject)
	}

	direction = parts[len(parts)-1]
	switch direction {
	case DirectionIn, DirectionOut, DirectionClose:
	default:
		return 0, "", fmt.Errorf("%s - unknown direction %q in %q", subjectsLogPrefix, direction, subject)
	}

	id, err := strconv.ParseUint(parts[len(parts)-2], 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("%s - bad channel id in %q: %w", subjectsLogPrefix, subject, err)
	}
	return uint32(id), direction, nil
}

// BuildSubscriptionSubject builds the granular subscription-change subject
// "<prefix>.<callsign>.subscriptions.<event>".
func BuildSubscriptionSubject(prefix, callsign, event string) string {
	return fmt.Sprintf("%s.%s.subscriptions.%s", prefix, safeToken(callsign), safeToken(event))
}

// BuildSubscriptionsSubject builds the global subscription-change subject.
func BuildSubscriptionsSubject(prefix string) string {
	return prefix + ".subscriptions"
}

func safeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
