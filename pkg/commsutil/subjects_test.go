package commsutil

import "testing"

func TestBuildChannelSubject(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		callsign  string
		channelID uint32
		direction string
		want      string
	}{
		{"inbound", "plugin", "ctrl", 42, DirectionIn, "plugin.ctrl.42.in"},
		{"outbound", "plugin", "ctrl", 1, DirectionOut, "plugin.ctrl.1.out"},
		{"dotted callsign", "plugin", "org.ctrl", 7, DirectionClose, "plugin.org_ctrl.7.close"},
		{"custom prefix", "edge.rpc", "ctrl", 3, DirectionIn, "edge.rpc.ctrl.3.in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildChannelSubject(tt.prefix, tt.callsign, tt.channelID, tt.direction)
			if got != tt.want {
				t.Errorf("commsutil:subjects_test - BuildChannelSubject() = %q, want %q", got, tt.want)
			}

			id, dir, err := ParseChannelSubject(got)
			if err != nil {
				t.Fatalf("commsutil:subjects_test - ParseChannelSubject(%q) failed: %v", got, err)
			}
			if id != tt.channelID || dir != tt.direction {
				t.Errorf("commsutil:subjects_test - parsed %d/%s, want %d/%s", id, dir, tt.channelID, tt.direction)
			}
		})
	}
}

func TestParseChannelSubject_Invalid(t *testing.T) {
	for _, subject := range []string{"plugin.ctrl.in", "plugin.ctrl.x.in", "plugin.ctrl.1.sideways", "plugin.ctrl.99999999999.in"} {
		if _, _, err := ParseChannelSubject(subject); err == nil {
			t.Errorf("commsutil:subjects_test - expected error for %q", subject)
		}
	}
}

func TestBuildChannelWildcard(t *testing.T) {
	if got := BuildChannelWildcard("plugin", "ctrl", DirectionIn); got != "plugin.ctrl.*.in" {
		t.Errorf("commsutil:subjects_test - BuildChannelWildcard() = %q", got)
	}
}

func TestBuildSubscriptionSubjects(t *testing.T) {
	if got := BuildSubscriptionSubject("plugin", "ctrl", "state.changed"); got != "plugin.ctrl.subscriptions.state_changed" {
		t.Errorf("commsutil:subjects_test - BuildSubscriptionSubject() = %q", got)
	}
	if got := BuildSubscriptionSubject("plugin", "", "tick"); got != "plugin._.subscriptions.tick" {
		t.Errorf("commsutil:subjects_test - BuildSubscriptionSubject() = %q", got)
	}
	if got := BuildSubscriptionsSubject("plugin"); got != "plugin.subscriptions" {
		t.Errorf("commsutil:subjects_test - BuildSubscriptionsSubject() = %q", got)
	}
}
