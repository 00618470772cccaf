package feedback

import (
	"strings"
	"time"
)

// DisplayColumns is the width of the two-line character display.
const DisplayColumns = 16

type ScreenKind int

const (
	ScreenEnterCode ScreenKind = iota
	ScreenScanCredential
	ScreenAdminScanCredential
	ScreenAdminEnterCode
	ScreenAccessGranted
	ScreenAccessDenied
	ScreenTransientMessage
)

var screenNames = map[ScreenKind]string{
	ScreenEnterCode:           "enter_code",
	ScreenScanCredential:      "scan_credential",
	ScreenAdminScanCredential: "admin_scan_credential",
	ScreenAdminEnterCode:      "admin_enter_code",
	ScreenAccessGranted:       "access_granted",
	ScreenAccessDenied:        "access_denied",
	ScreenTransientMessage:    "transient_message",
}

func (k ScreenKind) String() string {
	if s, ok := screenNames[k]; ok {
		return s
	}
	return "unknown"
}

// Screen is one named display state.  Input carries the live code buffer
// for the entry screens; Line1, Line2 and Duration are only used by
// TransientMessage.
type Screen struct {
	Kind     ScreenKind
	Input    string
	Line1    string
	Line2    string
	Duration time.Duration
}

func EnterCode(buf string) Screen      { return Screen{Kind: ScreenEnterCode, Input: buf} }
func ScanCredential() Screen           { return Screen{Kind: ScreenScanCredential} }
func AdminScanCredential() Screen      { return Screen{Kind: ScreenAdminScanCredential} }
func AdminEnterCode(buf string) Screen { return Screen{Kind: ScreenAdminEnterCode, Input: buf} }
func AccessGranted() Screen            { return Screen{Kind: ScreenAccessGranted} }
func AccessDenied() Screen             { return Screen{Kind: ScreenAccessDenied} }

func TransientMessage(line1, line2 string, d time.Duration) Screen {
	return Screen{Kind: ScreenTransientMessage, Line1: line1, Line2: line2, Duration: d}
}

// Lines renders the screen as two display lines, each cut to
// DisplayColumns.
func (s Screen) Lines() (string, string) {
	var l1, l2 string
	switch s.Kind {
	case ScreenEnterCode:
		l1, l2 = "Enter code:", s.Input
	case ScreenScanCredential:
		l1, l2 = "Scan your card", ""
	case ScreenAdminScanCredential:
		l1, l2 = "ADMIN: scan card", "* to cancel"
	case ScreenAdminEnterCode:
		l1, l2 = "New code:", s.Input
	case ScreenAccessGranted:
		l1, l2 = "Access granted", "Welcome"
	case ScreenAccessDenied:
		l1, l2 = "Access denied", ""
	case ScreenTransientMessage:
		l1, l2 = s.Line1, s.Line2
	}
	return fit(l1), fit(l2)
}

func fit(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > DisplayColumns {
		return s[:DisplayColumns]
	}
	return s
}
