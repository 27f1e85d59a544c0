package handlers

// MenuItem is one orderable item.
type MenuItem struct {
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}

// Menu maps item ids to items. It is stored as a single record.
type Menu map[string]MenuItem

// User is the stored user record, keyed by phone.
type User struct {
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	Email          string     `json:"email"`
	Address        string     `json:"address"`
	Cart           []MenuItem `json:"cart"`
	HashedPassword string     `json:"hashedPassword,omitempty"`
	TOSAgreement   bool       `json:"tosAgreement"`
}

// Order is the stored record of a completed checkout, keyed by "<phone>-<uuid>".
type Order struct {
	ID       string   `json:"id"`
	Phone    string   `json:"phone"`
	Items    []string `json:"items"`
	Total    float64  `json:"total"`
	Currency string   `json:"currency"`
	ChargeID string   `json:"chargeId"`
	Created  int64    `json:"created"` // unix millis
}

func cartOf(u User) []MenuItem {
	if u.Cart == nil {
		return []MenuItem{}
	}
	return u.Cart
}
