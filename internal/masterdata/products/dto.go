package products

type CreateProductRequest struct {
	SKU         string  `json:"sku" validate:"required,max=40"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty"`
	Category    string  `json:"category" validate:"required,max=60"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=60"`
	UnitPrice   *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

type ListProductsRequest struct {
	Category   *string `json:"category,omitempty"`
	Search     string  `json:"search,omitempty"`
	ActiveOnly bool    `json:"active_only,omitempty"`
	Limit      int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset     int     `json:"offset" validate:"gte=0"`
}
