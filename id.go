package factor

import "github.com/xraph/factor/id"

// ID is the primary identifier type for all Factor entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
