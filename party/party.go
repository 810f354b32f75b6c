// Package party describes the authenticated caller identity that external
// collaborators attach to every command. Factor never authenticates
// credentials itself; it only checks that the caller's role and ownership
// permit the requested transition.
package party

import "github.com/xraph/factor/id"

// Role is the marketplace role of a caller.
type Role string

const (
	RoleSeller Role = "seller" // issues invoices, accepts/rejects offers
	RoleLender Role = "lender" // submits and withdraws offers
	RoleAnchor Role = "anchor" // approves invoices drawn on it
	RoleAdmin  Role = "admin"  // verifies invoices and sets funding terms
)

// Actor is a validated caller identity plus role.
type Actor struct {
	ID   id.ID `json:"id"`
	Role Role  `json:"role"`
}

// Seller builds a seller actor.
func Seller(sellerID id.SellerID) Actor { return Actor{ID: sellerID, Role: RoleSeller} }

// Lender builds a lender actor.
func Lender(lenderID id.LenderID) Actor { return Actor{ID: lenderID, Role: RoleLender} }

// Anchor builds an anchor actor.
func Anchor(anchorID id.AnchorID) Actor { return Actor{ID: anchorID, Role: RoleAnchor} }

// Admin builds an admin actor.
func Admin(adminID id.AdminID) Actor { return Actor{ID: adminID, Role: RoleAdmin} }

// Is reports whether the actor holds the given role.
func (a Actor) Is(role Role) bool { return a.Role == role }

// Owns reports whether the actor's identity matches the given party ID.
func (a Actor) Owns(owner id.ID) bool { return a.ID.String() == owner.String() }
