package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OfferPolicy string

const (
	// PolicyLowest models replacement cost.
	PolicyLowest OfferPolicy = "lowest"
	// PolicyHighest models the best single find.
	PolicyHighest OfferPolicy = "highest"
)

func ParseOfferPolicy(s string) (OfferPolicy, error) {
	p := OfferPolicy(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

func (p OfferPolicy) Validate() error {
	switch p {
	case PolicyLowest, PolicyHighest:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownPolicy, string(p))
}

// Select picks one price among offers. Offers with a negative price are
// ignored; ok is false when nothing usable remains.
func (p OfferPolicy) Select(offers []Offer) (price decimal.Decimal, ok bool) {
	for _, o := range offers {
		if o.Price.IsNegative() {
			continue
		}
		if !ok {
			price, ok = o.Price, true
			continue
		}
		switch p {
		case PolicyLowest:
			if o.Price.LessThan(price) {
				price = o.Price
			}
		case PolicyHighest:
			if o.Price.GreaterThan(price) {
				price = o.Price
			}
		}
	}
	return price, ok
}

type ItemValue struct {
	Identity  Identity
	UnitPrice decimal.Decimal
	Quantity  int
	Value     decimal.Decimal
}

type Valuation struct {
	UserID        string
	Policy        OfferPolicy
	Total         decimal.Decimal
	MostExpensive *ItemValue
	PricedItems   int
	UnpricedItems int
}

// ValueItems prices directly owned items. Assembly holdings are deliberately
// not decomposed so loose items and the assemblies containing them are never
// counted twice. items is keyed by item id; missing items count as unpriced.
func ValueItems(owned []OwnedItem, items map[string]*Item, policy OfferPolicy) Valuation {
	v := Valuation{Policy: policy, Total: decimal.Zero}
	for _, o := range owned {
		if o.Quantity <= 0 {
			continue
		}
		price, ok := policy.Select(items[o.Identity.ItemID].OffersFor(o.Identity.ColorID))
		if !ok {
			v.UnpricedItems++
			continue
		}
		value := price.Mul(decimal.NewFromInt(int64(o.Quantity)))
		v.Total = v.Total.Add(value)
		v.PricedItems++
		// strict comparison keeps the first item on ties
		if v.MostExpensive == nil || value.GreaterThan(v.MostExpensive.Value) {
			v.MostExpensive = &ItemValue{
				Identity:  o.Identity,
				UnitPrice: price,
				Quantity:  o.Quantity,
				Value:     value,
			}
		}
	}
	return v
}
