package escrow

import "github.com/xraph/escrow/id"

// ID is the primary identifier type for generated escrow records.
type ID = id.ID

// MintID identifies a mint and its authority registry.
type MintID = id.MintID

// ShopID identifies a seller's shop.
type ShopID = id.ShopID
