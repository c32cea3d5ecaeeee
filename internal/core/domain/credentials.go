package domain

// BillingCredentials is the single billing document the vault protects.
// It exists for later re-entry into merchant checkout forms; this is not a
// multi-tenant credential store.
type BillingCredentials struct {
	Card            Card    `json:"card"`
	Name            string  `json:"name"`
	BillingAddress  Address `json:"billingAddress"`
	ShippingAddress Address `json:"shippingAddress"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
}

type Card struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// EncryptedVault is the at-rest form of the billing credentials. All three
// fields are base64; the GCM auth tag is appended to the ciphertext.
type EncryptedVault struct {
	Ciphertext string `json:"ciphertext"`
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
}
