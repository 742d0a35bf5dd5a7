package domain

import "fmt"

// Identity is the composite key of a purchasable catalog line. Color is always
// keyed by id, never by display name.
type Identity struct {
	ItemID  string
	ColorID string
}

func NewIdentity(itemID, colorID string) (Identity, error) {
	id := Identity{ItemID: itemID, ColorID: colorID}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

func (id Identity) Validate() error {
	if id.ItemID == "" || id.ColorID == "" {
		return fmt.Errorf("%w (item=%q color=%q)", ErrInvalidIdentity, id.ItemID, id.ColorID)
	}
	return nil
}

func (id Identity) String() string {
	return id.ItemID + "/" + id.ColorID
}
