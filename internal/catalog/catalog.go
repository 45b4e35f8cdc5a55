package catalog

// Product is an immutable catalog entry. Prices are whole CZK.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Sentinel ids used as cart keys for the non-beverage lines.
const (
	CupID      = "cup"
	ExtraCupID = "cup-extra"
	ReturnID   = "return"
	ReturnKey  = "cup-return"
	CupName    = "Kelímek"
	ExtraCup   = "Kelímek prázdný"
	ReturnName = "Vrácení kelímku"
	CupDeposit = 50.0
)

var products = []Product{
	{ID: "svarak", Name: "Svařák", Price: 60},
	{ID: "punc", Name: "Čertovský punč", Price: 70},
	{ID: "detsky-punc", Name: "Dětský punč", Price: 40},
	{ID: "grog", Name: "Grog", Price: 65},
	{ID: "caj", Name: "Horký čaj", Price: 40},
	{ID: "medovina", Name: "Medovina", Price: 80},
}

// Products returns the beverage catalog. The slice is copied so callers
// cannot mutate the reference data.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Find returns the catalog entry for id, or false when id is unknown or one
// of the sentinel ids.
func Find(id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// CupProduct is the standalone cup sold at deposit price.
func CupProduct() Product {
	return Product{ID: CupID, Name: CupName, Price: CupDeposit}
}
