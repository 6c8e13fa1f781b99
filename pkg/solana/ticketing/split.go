package ticketing

import (
	"math/bits"
)

const (
	OrganizerSharePercent = 40
	SellerSharePercent    = 40
	PlatformSharePercent  = 100 - OrganizerSharePercent - SellerSharePercent
)

// ResaleSplit is the distribution of a resale price. Platform absorbs the
// rounding remainder, so the three amounts always sum to the price.
type ResaleSplit struct {
	Organizer uint64
	Seller    uint64
	Platform  uint64
}

// SplitResalePrice computes the organizer, seller and platform amounts for a
// resale at price lamports using integer arithmetic only.
func SplitResalePrice(price uint64) (*ResaleSplit, error) {
	organizer, err := percentOf(price, OrganizerSharePercent)
	if err != nil {
		return nil, err
	}
	seller, err := percentOf(price, SellerSharePercent)
	if err != nil {
		return nil, err
	}

	platform, borrow := bits.Sub64(price, organizer, 0)
	if borrow != 0 {
		return nil, ErrArithmeticOverflow
	}
	platform, borrow = bits.Sub64(platform, seller, 0)
	if borrow != 0 {
		return nil, ErrArithmeticOverflow
	}

	return &ResaleSplit{
		Organizer: organizer,
		Seller:    seller,
		Platform:  platform,
	}, nil
}

// Total returns the sum of the three shares.
func (s *ResaleSplit) Total() (uint64, error) {
	sum, carry := bits.Add64(s.Organizer, s.Seller, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	sum, carry = bits.Add64(sum, s.Platform, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

func percentOf(amount, percent uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, percent)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo / 100, nil
}
