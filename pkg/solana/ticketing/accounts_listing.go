package ticketing

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/solana/binary"
)

const (
	ListingAccountSize = (8 + // discriminator
		32 + // seller
		32 + // event
		32 + // ticket_mint
		8 + // price_lamports
		1) // bump
)

// sha256("account:Listing")[:8]
var ListingAccountDiscriminator = []byte{218, 32, 50, 73, 43, 134, 26, 58}

type ListingAccount struct {
	Seller        ed25519.PublicKey
	Event         ed25519.PublicKey
	TicketMint    ed25519.PublicKey
	PriceLamports uint64
	Bump          uint8
}

func (obj *ListingAccount) Marshal() []byte {
	data := make([]byte, ListingAccountSize)

	var offset int
	putDiscriminator(data, ListingAccountDiscriminator, &offset)
	binary.PutKey32(data, obj.Seller, &offset)
	binary.PutKey32(data, obj.Event, &offset)
	binary.PutKey32(data, obj.TicketMint, &offset)
	binary.PutUint64(data, obj.PriceLamports, &offset)
	binary.PutUint8(data, obj.Bump, &offset)

	return data
}

func (obj *ListingAccount) Unmarshal(data []byte) error {
	if !hasDiscriminator(data, ListingAccountDiscriminator) {
		return errors.Wrap(ErrMalformedAccount, "listing discriminator mismatch")
	}
	offset := discriminatorSize
	for _, get := range []func() error{
		func() error { return binary.GetKey32(data, &obj.Seller, &offset) },
		func() error { return binary.GetKey32(data, &obj.Event, &offset) },
		func() error { return binary.GetKey32(data, &obj.TicketMint, &offset) },
		func() error { return binary.GetUint64(data, &obj.PriceLamports, &offset) },
		func() error { return binary.GetUint8(data, &obj.Bump, &offset) },
	} {
		if err := get(); err != nil {
			return errors.Wrapf(ErrMalformedAccount, "listing: %v", err)
		}
	}

	return nil
}

func (obj *ListingAccount) String() string {
	return fmt.Sprintf(
		"Listing{seller=%s,event=%s,ticket_mint=%s,price_lamports=%d,bump=%d}",
		base58.Encode(obj.Seller),
		base58.Encode(obj.Event),
		base58.Encode(obj.TicketMint),
		obj.PriceLamports,
		obj.Bump,
	)
}
