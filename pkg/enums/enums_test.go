package enums

import "testing"

func TestParseSmsStatus(t *testing.T) {
	for _, status := range validSmsStatuses {
		parsed, err := ParseSmsStatus(string(status))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", status, err)
		}
		if parsed != status || !parsed.IsValid() {
			t.Fatalf("expected %q to round trip", status)
		}
	}
	if _, err := ParseSmsStatus("enqueued"); err == nil {
		t.Fatal("expected error for status outside the enum")
	}
	if SmsStatus("bogus").IsValid() {
		t.Fatal("bogus status should be invalid")
	}
}

func TestSmsStatusOrUnknown(t *testing.T) {
	if got := SmsStatusOrUnknown("queued"); got != SmsStatusQueued {
		t.Fatalf("expected queued, got %q", got)
	}
	if got := SmsStatusOrUnknown(""); got != SmsStatusUnknown {
		t.Fatalf("expected unknown for blank, got %q", got)
	}
}

func TestParseChannel(t *testing.T) {
	if c, err := ParseChannel("sms"); err != nil || c != ChannelSMS {
		t.Fatalf("expected sms channel, got %q (%v)", c, err)
	}
	if _, err := ParseChannel("push"); err == nil {
		t.Fatal("expected push to be rejected")
	}
}
