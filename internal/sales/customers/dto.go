package customers

type CreateCustomerRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

type ListCustomersRequest struct {
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset int    `json:"offset" validate:"gte=0"`
}
