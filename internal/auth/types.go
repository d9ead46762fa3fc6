package auth

import "time"

// User is the stored account record. Sessions point at it by ID.
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"password_hash"`
	ResetTokenHash      string     `json:"reset_token_hash,omitempty"`
	ResetTokenExpiresAt time.Time  `json:"reset_token_expires_at,omitempty"`
	Cart                []CartItem `json:"cart"`
	CreatedAt           time.Time  `json:"created_at"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (u User) Clone() User {
	u.Cart = append([]CartItem(nil), u.Cart...)
	return u
}

// AddToCart increments the quantity for productID, adding a line if needed.
func (u *User) AddToCart(productID string) {
	for i := range u.Cart {
		if u.Cart[i].ProductID == productID {
			u.Cart[i].Quantity++
			return
		}
	}
	u.Cart = append(u.Cart, CartItem{ProductID: productID, Quantity: 1})
}

// RemoveFromCart drops the line for productID.
func (u *User) RemoveFromCart(productID string) {
	kept := u.Cart[:0]
	for _, item := range u.Cart {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	u.Cart = kept
}
