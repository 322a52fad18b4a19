package enums

// OrderRole tags which side of an order the caller is on.
type OrderRole string

const (
	OrderRoleBuyer  OrderRole = "BUYER"
	OrderRoleSeller OrderRole = "SELLER"
)

func (r OrderRole) String() string {
	return string(r)
}
