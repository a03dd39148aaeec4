package contactsapi

import "github.com/ternarybob/crudcheck/internal/models"

// loginRequest is the body of POST /users/login
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is returned by POST /users/login
type loginResponse struct {
	User  *User  `json:"user,omitempty"`
	Token string `json:"token"`
}

// User is the account that owns a token
type User struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Contact is a contact as carried by the /contacts endpoints
type Contact struct {
	ID            string `json:"_id,omitempty"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Birthdate     string `json:"birthdate,omitempty"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Street1       string `json:"street1,omitempty"`
	Street2       string `json:"street2,omitempty"`
	City          string `json:"city,omitempty"`
	StateProvince string `json:"stateProvince,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	Country       string `json:"country,omitempty"`
	Owner         string `json:"owner,omitempty"`
}

// errorResponse is the body of a rejected request
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// FromModel converts a contact to its wire form
func FromModel(c models.Contact) Contact {
	return Contact{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Birthdate:     c.DateOfBirth,
		Email:         c.Email,
		Phone:         c.Phone,
		Street1:       c.Address,
		City:          c.City,
		StateProvince: c.State,
		PostalCode:    c.PostalCode,
	}
}

// ToModel converts a wire contact to a stored contact
func (c Contact) ToModel() models.StoredContact {
	return models.StoredContact{
		ID: c.ID,
		Contact: models.Contact{
			FirstName:   c.FirstName,
			LastName:    c.LastName,
			DateOfBirth: c.Birthdate,
			Email:       c.Email,
			Phone:       c.Phone,
			Address:     c.Street1,
			City:        c.City,
			State:       c.StateProvince,
			PostalCode:  c.PostalCode,
		},
	}
}
