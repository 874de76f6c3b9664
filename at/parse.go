package at

import (
	"regexp"
	"strconv"
	"strings"
)

// Pure parsing of captured modem response text. Nothing in this file
// touches a transport, so every rule is testable against literal
// transcripts.

// SignalUnknown is the sentinel for signal metrics the modem reports as
// not known or not detectable (quality code 99). It is far outside any
// real dBm value so it can never be mistaken for a weak-but-valid signal.
const SignalUnknown = -999

// BERUnknown is the bit-error-rate code the modem uses for "not known".
const BERUnknown = 99

var (
	csqRe    = regexp.MustCompile(`\+CSQ:\s*(\d+),(\d+)`)
	cregRe   = regexp.MustCompile(`\+CREG:\s*\d+,(\d+)`)
	lteRe    = regexp.MustCompile(`RSRP:(-?\d+).*RSRQ:(-?\d+).*SINR:(-?\d+)`)
	clockRe  = regexp.MustCompile(`\+CCLK:\s*"([^"]+)"`)
	actionRe = regexp.MustCompile(`\+HTTPACTION:\s*(\d+),(\d+),(\d+)`)
	copsRe   = regexp.MustCompile(`\+COPS:\s*\d+,\d+,"([^"]+)"`)
	cspnRe   = regexp.MustCompile(`\+CSPN:\s*"([^"]+)"`)
	imeiRe   = regexp.MustCompile(`\d{15}`)
	iccidRe  = regexp.MustCompile(`\d{19,20}`)
)

// ParseSignalQuality extracts the +CSQ quality code pair and converts the
// RSSI code to dBm. Codes 0..31 map via dBm = -113 + 2*code; code 99 maps
// to SignalUnknown, never to a numeric extrapolation. ok is false when the
// response carries no +CSQ line at all.
func ParseSignalQuality(text string) (rssiDBm, ber int, ok bool) {
	m := csqRe.FindStringSubmatch(text)
	if m == nil {
		return SignalUnknown, BERUnknown, false
	}
	code, _ := strconv.Atoi(m[1])
	ber, _ = strconv.Atoi(m[2])
	if code == 99 {
		return SignalUnknown, ber, true
	}
	return -113 + 2*code, ber, true
}

// RegistrationStatus is the <stat> field of a +CREG? response.
type RegistrationStatus int

const (
	RegNotSearching RegistrationStatus = 0
	RegHome         RegistrationStatus = 1
	RegSearching    RegistrationStatus = 2
	RegDenied       RegistrationStatus = 3
	RegUnknown      RegistrationStatus = 4
	RegRoaming      RegistrationStatus = 5
)

// Registered reports whether the modem is attached to a network,
// at home or roaming.
func (s RegistrationStatus) Registered() bool {
	return s == RegHome || s == RegRoaming
}

// Roaming reports whether the attachment is on a visited network.
func (s RegistrationStatus) Roaming() bool { return s == RegRoaming }

// Denied reports a terminal registration rejection by the network.
func (s RegistrationStatus) Denied() bool { return s == RegDenied }

// ParseRegistration extracts the registration status code from a +CREG?
// response. ok is false when no +CREG line is present.
func ParseRegistration(text string) (RegistrationStatus, bool) {
	m := cregRe.FindStringSubmatch(text)
	if m == nil {
		return RegUnknown, false
	}
	code, _ := strconv.Atoi(m[1])
	return RegistrationStatus(code), true
}

// SystemInfo is the portion of a +CPSI? response this engine cares about.
// The LTE metrics are only meaningful when HasLTEMetrics is set; their
// absence is not an error, some firmware revisions omit them.
type SystemInfo struct {
	NetworkType   string // "LTE", "3G", "2G" or "" when unrecognized
	RSRP          int
	RSRQ          int
	SINR          int
	HasLTEMetrics bool
}

// ParseSystemInfo infers the network type from a +CPSI? response and, on
// LTE, extracts RSRP/RSRQ/SINR when present.
func ParseSystemInfo(text string) SystemInfo {
	info := SystemInfo{RSRP: SignalUnknown, RSRQ: SignalUnknown, SINR: SignalUnknown}
	switch {
	case strings.Contains(text, "LTE"):
		info.NetworkType = "LTE"
		if m := lteRe.FindStringSubmatch(text); m != nil {
			info.RSRP, _ = strconv.Atoi(m[1])
			info.RSRQ, _ = strconv.Atoi(m[2])
			info.SINR, _ = strconv.Atoi(m[3])
			info.HasLTEMetrics = true
		}
	case strings.Contains(text, "WCDMA"):
		info.NetworkType = "3G"
	case strings.Contains(text, "GSM"):
		info.NetworkType = "2G"
	}
	return info
}

// ParseClock extracts the quoted timestamp from a +CCLK? response.
// The string is returned verbatim; use ValidClock to check its shape.
func ParseClock(text string) (string, bool) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidClock reports whether a timestamp has the exact modem clock shape
// "YY/MM/DD,HH:MM:SS±ZZ": 20 characters with separators at fixed offsets
// and digits everywhere else. Semantic validity (e.g. Feb 30) is the time
// manager's concern, not this engine's.
func ValidClock(s string) bool {
	if len(s) != 20 {
		return false
	}
	for i, c := range []byte(s) {
		switch i {
		case 2, 5:
			if c != '/' {
				return false
			}
		case 8:
			if c != ',' {
				return false
			}
		case 11, 14:
			if c != ':' {
				return false
			}
		case 17:
			if c != '+' && c != '-' {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// ParseHTTPAction extracts the (method, status, length) triple from a
// +HTTPACTION unsolicited result. ok is false on any shape mismatch.
func ParseHTTPAction(text string) (method, status, length int, ok bool) {
	m := actionRe.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, 0, false
	}
	method, _ = strconv.Atoi(m[1])
	status, _ = strconv.Atoi(m[2])
	length, _ = strconv.Atoi(m[3])
	return method, status, length, true
}

// ParseOperator extracts the operator name from a +COPS? response.
func ParseOperator(text string) (string, bool) {
	m := copsRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseSimOperator extracts the service provider name from a +CSPN? response.
func ParseSimOperator(text string) (string, bool) {
	m := cspnRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseIdentity extracts the first 15-digit run from a +CGSN or +CIMI
// response (IMEI and IMSI share the shape).
func ParseIdentity(text string) (string, bool) {
	s := imeiRe.FindString(text)
	return s, s != ""
}

// ParseICCID extracts the 19-20 digit card identifier from a +CCID response.
func ParseICCID(text string) (string, bool) {
	s := iccidRe.FindString(text)
	return s, s != ""
}
