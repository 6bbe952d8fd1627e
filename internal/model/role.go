package model

// Role задаёт роль пользователя.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSalesman Role = "salesman"
	RoleAdmin    Role = "admin"
)

// Capability обозначает действие, требующее проверки прав.
type Capability string

const (
	CapManageArticles     Capability = "manage_articles"
	CapVerifyTransactions Capability = "verify_transactions"
	CapManageCurrencies   Capability = "manage_currencies"
)

var capabilities = map[Role][]Capability{
	RoleCustomer: nil,
	RoleSalesman: {CapManageArticles, CapVerifyTransactions},
	RoleAdmin:    {CapManageArticles, CapManageCurrencies},
}

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	_, ok := capabilities[r]
	return ok
}

// Can проверяет, разрешено ли роли действие.
func (r Role) Can(c Capability) bool {
	for _, granted := range capabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}
