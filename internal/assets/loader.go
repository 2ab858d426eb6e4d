package assets

// Built-in asset names.
const (
	DefaultStyleName       = "default"
	DefaultTemplateSetName = "default"
)

// InvoiceTemplateFile is the file a template set directory must contain.
const InvoiceTemplateFile = "invoice.html"

// TemplateSet is a named invoice layout.
type TemplateSet struct {
	Name    string
	Invoice string // html/template source
}

// AssetLoader loads styles and template sets by name.
type AssetLoader interface {
	// LoadStyle returns the CSS of a style (name without .css).
	// Returns ErrStyleNotFound or ErrInvalidAssetName.
	LoadStyle(name string) (string, error)

	// LoadTemplateSet returns the templates of a set.
	// Returns ErrTemplateSetNotFound or ErrInvalidAssetName.
	LoadTemplateSet(name string) (*TemplateSet, error)
}
