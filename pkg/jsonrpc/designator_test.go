package jsonrpc

import "testing"

func TestDesignatorParts(t *testing.T) {
	tests := []struct {
		name         string
		designator   string
		wantCallsign string
		wantVersion  uint8
		wantMethod   string
	}{
		{name: "bare method", designator: "ping", wantCallsign: "", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "callsign and method", designator: "ctrl.ping", wantCallsign: "ctrl", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "versioned", designator: "ctrl.2.ping", wantCallsign: "ctrl", wantVersion: 2, wantMethod: "ping"},
		{name: "version zero", designator: "ctrl.0.ping", wantCallsign: "ctrl", wantVersion: 0, wantMethod: "ping"},
		{name: "dotted callsign", designator: "org.ctrl.1.ping", wantCallsign: "org.ctrl", wantVersion: 1, wantMethod: "ping"},
		{name: "dotted callsign no version", designator: "org.ctrl.ping", wantCallsign: "org.ctrl", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "sentinel is not a version", designator: "ctrl.255.ping", wantCallsign: "ctrl.255", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "numeric callsign", designator: "2.ping", wantCallsign: "2", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "reserved method", designator: "ctrl.1.register", wantCallsign: "ctrl", wantVersion: 1, wantMethod: "register"},
		{name: "whitespace trimmed", designator: "  ctrl.ping ", wantCallsign: "ctrl", wantVersion: AnyVersion, wantMethod: "ping"},
		{name: "empty", designator: "", wantCallsign: "", wantVersion: AnyVersion, wantMethod: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Callsign(tt.designator); got != tt.wantCallsign {
				t.Errorf("jsonrpc:designator_test - Callsign(%q) = %q, want %q", tt.designator, got, tt.wantCallsign)
			}
			if got := Version(tt.designator); got != tt.wantVersion {
				t.Errorf("jsonrpc:designator_test - Version(%q) = %d, want %d", tt.designator, got, tt.wantVersion)
			}
			if got := Method(tt.designator); got != tt.wantMethod {
				t.Errorf("jsonrpc:designator_test - Method(%q) = %q, want %q", tt.designator, got, tt.wantMethod)
			}
		})
	}
}

func TestBuildDesignator(t *testing.T) {
	tests := []struct {
		callsign string
		version  uint8
		method   string
		want     string
	}{
		{"ctrl", AnyVersion, "ping", "ctrl.ping"},
		{"ctrl", 2, "ping", "ctrl.2.ping"},
		{"", AnyVersion, "ping", "ping"},
	}

	for _, tt := range tests {
		got := BuildDesignator(tt.callsign, tt.version, tt.method)
		if got != tt.want {
			t.Errorf("jsonrpc:designator_test - BuildDesignator(%q, %d, %q) = %q, want %q", tt.callsign, tt.version, tt.method, got, tt.want)
		}
		if Method(got) != tt.method || Callsign(got) != tt.callsign || Version(got) != tt.version {
			t.Errorf("jsonrpc:designator_test - %q does not split back into its parts", got)
		}
	}
}
