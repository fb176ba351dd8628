package enums

import "fmt"

// Channel identifies a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

var validChannels = []Channel{ChannelEmail, ChannelSMS}

func (c Channel) IsValid() bool {
	for _, candidate := range validChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseChannel(value string) (Channel, error) {
	for _, candidate := range validChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid channel %q", value)
}

// DeliveryMode records whether a channel notification is sent inline with the
// save or handed to the queue after commit.
type DeliveryMode string

const (
	DeliveryModeDefault DeliveryMode = ""
	DeliveryModeNow     DeliveryMode = "now"
	DeliveryModeLater   DeliveryMode = "later"
)
