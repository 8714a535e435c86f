package domain

// DefaultCountry is used for addresses that arrive without a country
const DefaultCountry = "United States"

// Address is the transfer shape of a customer address
type Address struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Zip      string `json:"zip"`
}

// Customer is the transfer record moved between stores
type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt string    `json:"created_at"`
	Addresses []Address `json:"addresses"`
}

// SyncResult is the outcome of one attempted customer creation
type SyncResult struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SyncSummary is returned by the shop-to-shop pull
type SyncSummary struct {
	Success  bool         `json:"success"`
	Imported int          `json:"imported"`
	Results  []SyncResult `json:"results"`
}

// Product is a row of the external store product listing
type Product struct {
	Title     string `json:"title"`
	Vendor    string `json:"vendor"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}
