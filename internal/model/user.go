package model

// User represents a customer.  The pair (Name, Age) identifies a
// customer uniquely; the tier drives the discount applied when the
// customer books a movie.  Users are immutable after creation.
//
// Fields:
//  ID   – identifier assigned by the store on creation.
//  Name – customer name.
//  Age  – customer age in years, within [MinUserAge, MaxUserAge].
//  Tier – basic, premium or vip.
type User struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
	Tier Tier   `json:"class"`
}

// Age bounds for a user, inclusive.
const (
	MinUserAge = 12
	MaxUserAge = 110
)

// Identity is the natural key of a user.
type Identity struct {
	Name string
	Age  int
}

// Identity returns the (name, age) pair of u.
func (u User) Identity() Identity { return Identity{Name: u.Name, Age: u.Age} }
