package ticketing

import (
	"crypto/ed25519"
	"fmt"
	"unicode/utf8"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana/binary"
)

const (
	MaxEventTitleLength    = 64
	MaxEventVenueLength    = 64
	MaxEventTierNameLength = 32
)

const (
	EventAccountSize = (8 + // discriminator
		32 + // organizer
		8 + // nonce
		binary.StringLengthPrefixSize + MaxEventTitleLength + // title
		binary.StringLengthPrefixSize + MaxEventVenueLength + // venue
		8 + // date_ts
		binary.StringLengthPrefixSize + MaxEventTierNameLength + // tier_name
		8 + // price_lamports
		4 + // supply
		4 + // sold
		1) // bump
)

// sha256("account:Event")[:8]
var EventAccountDiscriminator = []byte{125, 192, 125, 158, 9, 115, 152, 233}

type EventAccount struct {
	Organizer     ed25519.PublicKey
	Nonce         uint64
	Title         string
	Venue         string
	DateTs        int64
	TierName      string
	PriceLamports uint64
	Supply        uint32
	Sold          uint32
	Bump          uint8
}

// IsSoldOut reports whether every ticket of the event has been sold.
func (obj *EventAccount) IsSoldOut() bool {
	return obj.Sold >= obj.Supply
}

// Remaining is the number of tickets still available at the primary price.
func (obj *EventAccount) Remaining() uint32 {
	if obj.IsSoldOut() {
		return 0
	}
	return obj.Supply - obj.Sold
}

// Validate checks the field constraints enforced at creation.
func (obj *EventAccount) Validate() error {
	if len(obj.Organizer) != ed25519.PublicKeySize {
		return errors.New("organizer is required")
	}
	if err := validateString("title", obj.Title, MaxEventTitleLength); err != nil {
		return err
	}
	if err := validateString("venue", obj.Venue, MaxEventVenueLength); err != nil {
		return err
	}
	if err := validateString("tier name", obj.TierName, MaxEventTierNameLength); err != nil {
		return err
	}
	if obj.Supply == 0 {
		return errors.New("supply must be positive")
	}
	if obj.Sold > obj.Supply {
		return errors.New("sold exceeds supply")
	}
	return nil
}

// Marshal encodes the account into a buffer of EventAccountSize bytes. Unused
// trailing bytes are zero.
func (obj *EventAccount) Marshal() []byte {
	size := EventAccountSize
	if encoded := obj.encodedSize(); encoded > size {
		size = encoded
	}
	data := make([]byte, size)

	var offset int
	putDiscriminator(data, EventAccountDiscriminator, &offset)
	binary.PutKey32(data, obj.Organizer, &offset)
	binary.PutUint64(data, obj.Nonce, &offset)
	binary.PutString(data, obj.Title, &offset)
	binary.PutString(data, obj.Venue, &offset)
	binary.PutInt64(data, obj.DateTs, &offset)
	binary.PutString(data, obj.TierName, &offset)
	binary.PutUint64(data, obj.PriceLamports, &offset)
	binary.PutUint32(data, obj.Supply, &offset)
	binary.PutUint32(data, obj.Sold, &offset)
	binary.PutUint8(data, obj.Bump, &offset)

	return data
}

func (obj *EventAccount) encodedSize() int {
	return EventAccountSize -
		MaxEventTitleLength - MaxEventVenueLength - MaxEventTierNameLength +
		len(obj.Title) + len(obj.Venue) + len(obj.TierName)
}

func (obj *EventAccount) Unmarshal(data []byte) error {
	if !hasDiscriminator(data, EventAccountDiscriminator) {
		return errors.Wrap(ErrMalformedAccount, "event discriminator mismatch")
	}

	offset := discriminatorSize
	for _, get := range []func() error{
		func() error { return binary.GetKey32(data, &obj.Organizer, &offset) },
		func() error { return binary.GetUint64(data, &obj.Nonce, &offset) },
		func() error { return binary.GetString(data, &obj.Title, &offset) },
		func() error { return binary.GetString(data, &obj.Venue, &offset) },
		func() error { return binary.GetInt64(data, &obj.DateTs, &offset) },
		func() error { return binary.GetString(data, &obj.TierName, &offset) },
		func() error { return binary.GetUint64(data, &obj.PriceLamports, &offset) },
		func() error { return binary.GetUint32(data, &obj.Supply, &offset) },
		func() error { return binary.GetUint32(data, &obj.Sold, &offset) },
		func() error { return binary.GetUint8(data, &obj.Bump, &offset) },
	} {
		if err := get(); err != nil {
			return errors.Wrapf(ErrMalformedAccount, "event: %v", err)
		}
	}

	return nil
}

func (obj *EventAccount) String() string {
	return fmt.Sprintf(
		"Event{organizer=%s,nonce=%d,title=%s,venue=%s,date_ts=%d,tier_name=%s,price_lamports=%d,supply=%d,sold=%d,bump=%d}",
		base58.Encode(obj.Organizer),
		obj.Nonce,
		obj.Title,
		obj.Venue,
		obj.DateTs,
		obj.TierName,
		obj.PriceLamports,
		obj.Supply,
		obj.Sold,
		obj.Bump,
	)
}

func validateString(field, value string, maxLength int) error {
	if len(value) > maxLength {
		return errors.Errorf("%s exceeds %d bytes", field, maxLength)
	}
	if !utf8.ValidString(value) {
		return errors.Errorf("%s is not valid utf-8", field)
	}
	return nil
}
