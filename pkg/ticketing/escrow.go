package ticketing

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/runtime"
	ticketing_api "github.com/tixchain/ticket-server/pkg/solana/ticketing"
	"github.com/tixchain/ticket-server/pkg/solana/token"
)

// escrow is the custody of one listed ticket. It is acquired by
// list_for_resale and released exactly once, by either buy_resale or
// cancel_listing.
type escrow struct {
	mint    ed25519.PublicKey
	address ed25519.PublicKey
	listing ed25519.PublicKey
	bump    uint8
}

func newEscrow(mint, address, listing ed25519.PublicKey) (*escrow, error) {
	expected, bump, err := ticketing_api.GetEscrowAddress(&ticketing_api.GetEscrowAddressArgs{
		TicketMint: mint,
	})
	if err != nil {
		return nil, errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(address, expected, ticketing_api.ErrInvalidSeeds, "escrow address"); err != nil {
		return nil, err
	}

	expected, _, err = ticketing_api.GetListingAddress(&ticketing_api.GetListingAddressArgs{
		TicketMint: mint,
	})
	if err != nil {
		return nil, errors.Wrap(ticketing_api.ErrInvalidSeeds, err.Error())
	}
	if err := requireKey(listing, expected, ticketing_api.ErrInvalidSeeds, "listing address"); err != nil {
		return nil, err
	}

	return &escrow{
		mint:    mint,
		address: address,
		listing: listing,
		bump:    bump,
	}, nil
}

func (e *escrow) signerSeeds() [][]byte {
	return ticketing_api.EscrowSignerSeeds(e.mint, e.bump)
}

// acquire creates the escrow token account, paid for by seller, and moves
// the ticket into it from source.
func (e *escrow) acquire(ic *runtime.InvokeContext, seller, source ed25519.PublicKey) error {
	escrowAccount, err := ic.Account(e.address)
	if err != nil {
		return err
	}
	if !escrowAccount.IsEmpty() {
		return errors.Wrapf(ticketing_api.ErrEscrowInvariantViolated, "escrow %s exists without a listing", escrowAccount)
	}

	err = createAccount(ic, seller, e.address, token.ProgramKey, token.AccountSize, e.signerSeeds())
	if err != nil {
		return err
	}

	if err := ic.Invoke(token.InitializeAccount3(e.address, e.mint, e.address)); err != nil {
		return err
	}

	return ic.Invoke(token.Transfer(source, e.address, seller, 1))
}

// release moves the ticket to destination, then closes the escrow and the
// listing, returning their rent to seller.
func (e *escrow) release(ic *runtime.InvokeContext, seller, destination ed25519.PublicKey) error {
	err := ic.Invoke(
		token.Transfer(e.address, destination, e.address, 1),
		e.signerSeeds(),
	)
	if err != nil {
		return err
	}

	err = ic.Invoke(
		token.CloseAccount(e.address, seller, e.address),
		e.signerSeeds(),
	)
	if err != nil {
		return err
	}

	listingAccount, err := ic.Account(e.listing)
	if err != nil {
		return err
	}
	sellerAccount, err := ic.Account(seller)
	if err != nil {
		return err
	}
	return runtime.Close(listingAccount, sellerAccount)
}

// check verifies that the escrow holds exactly one ticket while the listing
// exists, and nothing otherwise.
func (e *escrow) check(ic *runtime.InvokeContext) error {
	escrowAccount, err := ic.Account(e.address)
	if err != nil {
		return err
	}
	listingAccount, err := ic.Account(e.listing)
	if err != nil {
		return err
	}

	var held uint64
	if !escrowAccount.IsEmpty() {
		state, err := loadTokenAccount(ic, e.address)
		if err != nil {
			return err
		}
		if !bytes.Equal(state.Mint, e.mint) {
			return errors.Wrapf(ticketing_api.ErrEscrowInvariantViolated, "escrow %s holds another mint", escrowAccount)
		}
		held = state.Amount
	}

	listed := !listingAccount.IsEmpty()
	if held > 1 || (held == 1) != listed {
		return errors.Wrapf(ticketing_api.ErrEscrowInvariantViolated, "escrow %s holds %d with listed=%v", escrowAccount, held, listed)
	}
	return nil
}
