package jsonrpc

import (
	"strconv"
	"strings"

	"github.com/morezero/plugin-dispatcher/pkg/semver"
)

// AnyVersion is returned by Version when the designator does not pin a version.
const AnyVersion = semver.AnyMajor

// Designator grammar:
//
//	method                   (no callsign, any version)
//	callsign.method          (any version)
//	callsign.version.method  (version is a decimal 0..254)
//
// The callsign itself may contain dots; only the last segment is the method and
// the one before it is a version when it is numeric.
func splitDesignator(designator string) (callsign string, version uint8, method string) {
	d := strings.TrimSpace(designator)
	version = AnyVersion

	last := strings.LastIndexByte(d, '.')
	if last < 0 {
		return "", version, d
	}

	method = d[last+1:]
	callsign = d[:last]

	if dot := strings.LastIndexByte(callsign, '.'); dot >= 0 {
		if v, ok := semver.ParseMajor(callsign[dot+1:]); ok {
			version = v
			callsign = callsign[:dot]
		}
	}
	return callsign, version, method
}

// Callsign returns the callsign the designator is addressed to, or "" when the
// designator carries none.
func Callsign(designator string) string {
	callsign, _, _ := splitDesignator(designator)
	return callsign
}

// Version returns the pinned version, or AnyVersion.
func Version(designator string) uint8 {
	_, version, _ := splitDesignator(designator)
	return version
}

// Method returns the bare method name with callsign and version stripped.
func Method(designator string) string {
	_, _, method := splitDesignator(designator)
	return method
}

// BuildDesignator joins the parts back into a designator. AnyVersion omits the
// version segment and an empty callsign omits the callsign segment.
func BuildDesignator(callsign string, version uint8, method string) string {
	var b strings.Builder
	if callsign != "" {
		b.WriteString(callsign)
		b.WriteByte('.')
		if version != AnyVersion {
			b.WriteString(strconv.Itoa(int(version)))
			b.WriteByte('.')
		}
	}
	b.WriteString(method)
	return b.String()
}
