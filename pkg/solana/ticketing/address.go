package ticketing

import (
	"crypto/ed25519"

	"github.com/tixchain/ticket-server/pkg/solana"
)

var (
	EventPrefix           = []byte("event")
	TicketMintPrefix      = []byte("ticket_mint")
	TicketAuthorityPrefix = []byte("ticket_authority")
	ListingPrefix         = []byte("listing")
	EscrowPrefix          = []byte("escrow")
)

type GetEventAddressArgs struct {
	Organizer ed25519.PublicKey
	Nonce     uint64
}

func GetEventAddress(args *GetEventAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		EventPrefix,
		args.Organizer,
		nonceSeed(args.Nonce),
	)
}

type GetTicketMintAddressArgs struct {
	Event ed25519.PublicKey
	Index uint32
}

// GetTicketMintAddress derives the mint for the ticket sold at Index, which
// is the event's sold counter at the time of purchase.
func GetTicketMintAddress(args *GetTicketMintAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		TicketMintPrefix,
		args.Event,
		ticketIndexSeed(args.Index),
	)
}

type GetTicketAuthorityAddressArgs struct {
	Event ed25519.PublicKey
	Index uint32
}

func GetTicketAuthorityAddress(args *GetTicketAuthorityAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		TicketAuthorityPrefix,
		args.Event,
		ticketIndexSeed(args.Index),
	)
}

type GetListingAddressArgs struct {
	TicketMint ed25519.PublicKey
}

func GetListingAddress(args *GetListingAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ListingPrefix,
		args.TicketMint,
	)
}

type GetEscrowAddressArgs struct {
	TicketMint ed25519.PublicKey
}

func GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		EscrowPrefix,
		args.TicketMint,
	)
}

// Seeds used by the program to sign for its addresses. The bump is appended
// as the final seed.

func EventSignerSeeds(organizer ed25519.PublicKey, nonce uint64, bump uint8) [][]byte {
	return [][]byte{EventPrefix, organizer, nonceSeed(nonce), {bump}}
}

func TicketMintSignerSeeds(event ed25519.PublicKey, index uint32, bump uint8) [][]byte {
	return [][]byte{TicketMintPrefix, event, ticketIndexSeed(index), {bump}}
}

func TicketAuthoritySignerSeeds(event ed25519.PublicKey, index uint32, bump uint8) [][]byte {
	return [][]byte{TicketAuthorityPrefix, event, ticketIndexSeed(index), {bump}}
}

func ListingSignerSeeds(ticketMint ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{ListingPrefix, ticketMint, {bump}}
}

func EscrowSignerSeeds(ticketMint ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{EscrowPrefix, ticketMint, {bump}}
}
