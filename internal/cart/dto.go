package cart

// LineDTO is the API shape of a cart line.
type LineDTO struct {
	ProductID   int64  `json:"product_id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// CartDTO is the API shape of the whole cart.
type CartDTO struct {
	Lines []LineDTO `json:"lines"`
	Count int       `json:"count"`
	Total string    `json:"total"`
}

// NewCartDTO renders the cart from a single consistent snapshot.
func NewCartDTO(c *Cart) CartDTO {
	lines, sum := c.Snapshot()
	out := CartDTO{Lines: make([]LineDTO, 0, len(lines)), Count: len(lines), Total: sum.StringFixed(2)}
	for _, l := range lines {
		out.Lines = append(out.Lines, LineDTO{
			ProductID:   l.Product.ID,
			Code:        l.Product.Code,
			Description: l.Product.Description,
			Price:       l.Product.Price.StringFixed(2),
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal().StringFixed(2),
		})
	}
	return out
}
