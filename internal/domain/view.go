package domain

// ViewKind names the variant of a View.
type ViewKind string

const (
	ViewLoading   ViewKind = "loading"
	ViewNotFound  ViewKind = "not_found"
	ViewEditing   ViewKind = "editing"
	ViewSubmitted ViewKind = "submitted"
)

// View is what the review page shows. Exactly one of LoadingView,
// NotFoundView, EditingView or SubmittedView.
type View interface {
	Kind() ViewKind
	view()
}

// LoadingView: the product fetch is still in flight.
type LoadingView struct{}

// NotFoundView: the product does not exist.
type NotFoundView struct {
	ProductID string
}

// EditingView shows the product and the review form. Submitting disables the
// submit control; Errors holds per-field validation messages.
type EditingView struct {
	Product    *Product
	Form       ReviewForm
	Submitting bool
	Errors     map[string]string
}

// SubmittedView confirms the review was stored.
type SubmittedView struct {
	Product *Product
}

func (LoadingView) Kind() ViewKind   { return ViewLoading }
func (NotFoundView) Kind() ViewKind  { return ViewNotFound }
func (EditingView) Kind() ViewKind   { return ViewEditing }
func (SubmittedView) Kind() ViewKind { return ViewSubmitted }

func (LoadingView) view()   {}
func (NotFoundView) view()  {}
func (EditingView) view()   {}
func (SubmittedView) view() {}

// ResolveView picks the view for a product lookup and the shopper's draft.
// Loading wins over everything, then a missing product, then a submitted
// draft.
func ResolveView(productID string, lookup ProductLookup, draft Draft) View {
	switch {
	case lookup.Loading:
		return LoadingView{}
	case lookup.Product == nil:
		return NotFoundView{ProductID: productID}
	case draft.Submitted:
		return SubmittedView{Product: lookup.Product}
	default:
		return EditingView{
			Product:    lookup.Product,
			Form:       draft.Form(),
			Submitting: draft.Submitting,
		}
	}
}
