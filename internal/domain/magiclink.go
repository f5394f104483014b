package domain

// DeliveryMethod is the channel a magic code is sent through.
type DeliveryMethod string

const (
	DeliveryEmail     DeliveryMethod = "email"
	DeliverySMS       DeliveryMethod = "sms"
	DeliveryPhoneCall DeliveryMethod = "phonecall"
)

// MagicAuthFormatCode means the client is expected to type a numeric code.
const MagicAuthFormatCode = "code"

// Valid reports whether m is one of the supported delivery methods.
func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryEmail, DeliverySMS, DeliveryPhoneCall:
		return true
	}
	return false
}
