package domain

// Product is the catalog item being reviewed. It is read-only here; the
// catalog owns and mutates it.
type Product struct {
	ID          string `json:"id" firestore:"-"`
	ProductName string `json:"productName" firestore:"productName"`
	ImageURL    string `json:"imageUrl" firestore:"imageUrl"`
	Description string `json:"description" firestore:"description"`
}

// ProductLookup is the outcome of resolving a product identifier. Product is
// nil while Loading is true and when the product does not exist.
type ProductLookup struct {
	Product *Product
	Loading bool
}
